package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/customadesign/acfl-booking-api/internal/models"
)

const bookingRequestColumns = `id, client_id, coach_id, session_type, duration_min,
	preferred_date, preferred_time, area_of_focus, notes, status,
	final_price_cents, coach_rate_id, coach_notes, reject_reason,
	created_at, updated_at, expires_at`

type CreateBookingRequestInput struct {
	ClientID        int64
	CoachID         int64
	SessionType     string
	DurationMinutes int
	PreferredDate   *string
	PreferredTime   *string
	AreaOfFocus     *string
	Notes           *string
	ExpiresAt       time.Time
}

type AcceptBookingRequestInput struct {
	FinalPriceCents int64
	CoachRateID     *int64
	CoachNotes      *string
	PaymentWindow   time.Duration
}

type BookingRequestListFilter struct {
	Status string
	Limit  int
	Offset int
}

type BookingRequestRepository struct {
	db DBTX
}

func NewBookingRequestRepository(db DBTX) *BookingRequestRepository {
	return &BookingRequestRepository{db: db}
}

func scanBookingRequest(row pgx.Row) (*models.BookingRequest, error) {
	var request models.BookingRequest
	err := row.Scan(
		&request.ID,
		&request.ClientID,
		&request.CoachID,
		&request.SessionType,
		&request.DurationMinutes,
		&request.PreferredDate,
		&request.PreferredTime,
		&request.AreaOfFocus,
		&request.Notes,
		&request.Status,
		&request.FinalPriceCents,
		&request.CoachRateID,
		&request.CoachNotes,
		&request.RejectReason,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *BookingRequestRepository) Create(
	ctx context.Context,
	input CreateBookingRequestInput,
) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`
		INSERT INTO booking_requests
			(client_id, coach_id, session_type, duration_min, preferred_date,
			 preferred_time, area_of_focus, notes, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)
		RETURNING %s
	`, bookingRequestColumns)

	return scanBookingRequest(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.CoachID,
		input.SessionType,
		input.DurationMinutes,
		input.PreferredDate,
		input.PreferredTime,
		input.AreaOfFocus,
		input.Notes,
		input.ExpiresAt,
	))
}

func (r *BookingRequestRepository) GetByID(ctx context.Context, requestID int64) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM booking_requests
		WHERE id = $1
	`, bookingRequestColumns)
	return scanBookingRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *BookingRequestRepository) GetByIDForUpdate(
	ctx context.Context,
	requestID int64,
) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM booking_requests
		WHERE id = $1
		FOR UPDATE
	`, bookingRequestColumns)
	return scanBookingRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *BookingRequestRepository) ListByClientID(
	ctx context.Context,
	clientID int64,
	filter BookingRequestListFilter,
) ([]models.BookingRequest, error) {
	args := []any{clientID}
	whereParts := []string{"client_id = $1"}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM booking_requests
		WHERE %s
		ORDER BY created_at DESC, id DESC
	`, bookingRequestColumns, strings.Join(whereParts, " AND "))

	return r.queryRequests(ctx, query, args...)
}

func (r *BookingRequestRepository) ListPendingByCoachID(
	ctx context.Context,
	coachID int64,
	limit int,
	offset int,
) ([]models.BookingRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM booking_requests
		WHERE coach_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, bookingRequestColumns)
	return r.queryRequests(ctx, query, coachID, limit, offset)
}

func (r *BookingRequestRepository) CountPendingByCoachID(ctx context.Context, coachID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM booking_requests
		WHERE coach_id = $1 AND status = 'pending'
	`
	var total int
	if err := r.db.QueryRow(ctx, query, coachID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// AcceptIfPending sets the final price in the same statement that moves the
// request out of pending, so the price invariant cannot be observed broken.
// The expiry horizon is pushed out to give the client a payment window.
// Returns pgx.ErrNoRows when the request is no longer pending.
func (r *BookingRequestRepository) AcceptIfPending(
	ctx context.Context,
	requestID int64,
	input AcceptBookingRequestInput,
) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`
		UPDATE booking_requests
		SET status = 'coach_accepted',
			final_price_cents = $2,
			coach_rate_id = $3,
			coach_notes = $4,
			expires_at = NOW() + ($5 * INTERVAL '1 second'),
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, bookingRequestColumns)
	return scanBookingRequest(r.db.QueryRow(
		ctx,
		query,
		requestID,
		input.FinalPriceCents,
		input.CoachRateID,
		input.CoachNotes,
		int64(input.PaymentWindow/time.Second),
	))
}

// RejectIfPending is terminal; no price is ever set on a rejected request.
func (r *BookingRequestRepository) RejectIfPending(
	ctx context.Context,
	requestID int64,
	reason *string,
) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`
		UPDATE booking_requests
		SET status = 'rejected', reject_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, bookingRequestColumns)
	return scanBookingRequest(r.db.QueryRow(ctx, query, requestID, reason))
}

func (r *BookingRequestRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	requestID int64,
	currentStatus string,
	nextStatus string,
) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`
		UPDATE booking_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, bookingRequestColumns)
	return scanBookingRequest(r.db.QueryRow(ctx, query, requestID, currentStatus, nextStatus))
}

// ExpireOverduePending sweeps pending requests whose expiry horizon has
// passed. Only pending rows are touched; accepted requests get a fresh
// payment window at accept time.
func (r *BookingRequestRepository) ExpireOverduePending(ctx context.Context) ([]models.BookingRequest, error) {
	query := fmt.Sprintf(`
		UPDATE booking_requests
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at < NOW()
		RETURNING %s
	`, bookingRequestColumns)
	return r.queryRequests(ctx, query)
}

func (r *BookingRequestRepository) queryRequests(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.BookingRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.BookingRequest, 0)
	for rows.Next() {
		request, err := scanBookingRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}
