package repository

import (
	"context"

	"github.com/customadesign/acfl-booking-api/internal/models"
)

type CreatePaymentAuthorizationInput struct {
	BookingRequestID int64
	ClientID         int64
	CoachID          int64
	AmountCents      int64
	PlatformFeeCents int64
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(
	ctx context.Context,
	input CreatePaymentAuthorizationInput,
) (*models.PaymentAuthorization, error) {
	query := `
		INSERT INTO payment_authorizations
			(booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status)
		VALUES ($1, $2, $3, $4, $5, 'authorized')
		RETURNING id, booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status, created_at, updated_at
	`
	var auth models.PaymentAuthorization
	err := r.db.QueryRow(ctx, query,
		input.BookingRequestID,
		input.ClientID,
		input.CoachID,
		input.AmountCents,
		input.PlatformFeeCents,
	).Scan(
		&auth.ID,
		&auth.BookingRequestID,
		&auth.ClientID,
		&auth.CoachID,
		&auth.AmountCents,
		&auth.PlatformFeeCents,
		&auth.Status,
		&auth.CreatedAt,
		&auth.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, authorizationID int64) (*models.PaymentAuthorization, error) {
	query := `
		SELECT id, booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status, created_at, updated_at
		FROM payment_authorizations
		WHERE id = $1
	`
	var auth models.PaymentAuthorization
	err := r.db.QueryRow(ctx, query, authorizationID).Scan(
		&auth.ID,
		&auth.BookingRequestID,
		&auth.ClientID,
		&auth.CoachID,
		&auth.AmountCents,
		&auth.PlatformFeeCents,
		&auth.Status,
		&auth.CreatedAt,
		&auth.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, authorizationID int64) (*models.PaymentAuthorization, error) {
	query := `
		SELECT id, booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status, created_at, updated_at
		FROM payment_authorizations
		WHERE id = $1
		FOR UPDATE
	`
	var auth models.PaymentAuthorization
	err := r.db.QueryRow(ctx, query, authorizationID).Scan(
		&auth.ID,
		&auth.BookingRequestID,
		&auth.ClientID,
		&auth.CoachID,
		&auth.AmountCents,
		&auth.PlatformFeeCents,
		&auth.Status,
		&auth.CreatedAt,
		&auth.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// GetLiveByBookingRequestID returns the newest non-voided authorization for a
// booking request, if any.
func (r *PaymentRepository) GetLiveByBookingRequestID(
	ctx context.Context,
	bookingRequestID int64,
) (*models.PaymentAuthorization, error) {
	query := `
		SELECT id, booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status, created_at, updated_at
		FROM payment_authorizations
		WHERE booking_request_id = $1 AND status <> 'voided'
		ORDER BY id DESC
		LIMIT 1
	`
	var auth models.PaymentAuthorization
	err := r.db.QueryRow(ctx, query, bookingRequestID).Scan(
		&auth.ID,
		&auth.BookingRequestID,
		&auth.ClientID,
		&auth.CoachID,
		&auth.AmountCents,
		&auth.PlatformFeeCents,
		&auth.Status,
		&auth.CreatedAt,
		&auth.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

func (r *PaymentRepository) ListByBookingRequestIDs(
	ctx context.Context,
	bookingRequestIDs []int64,
) (map[int64]models.PaymentAuthorization, error) {
	authorizations := make(map[int64]models.PaymentAuthorization, len(bookingRequestIDs))
	if len(bookingRequestIDs) == 0 {
		return authorizations, nil
	}

	query := `
		SELECT DISTINCT ON (booking_request_id)
			id, booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status, created_at, updated_at
		FROM payment_authorizations
		WHERE booking_request_id = ANY($1) AND status <> 'voided'
		ORDER BY booking_request_id, id DESC
	`
	rows, err := r.db.Query(ctx, query, bookingRequestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var auth models.PaymentAuthorization
		if err := rows.Scan(
			&auth.ID,
			&auth.BookingRequestID,
			&auth.ClientID,
			&auth.CoachID,
			&auth.AmountCents,
			&auth.PlatformFeeCents,
			&auth.Status,
			&auth.CreatedAt,
			&auth.UpdatedAt,
		); err != nil {
			return nil, err
		}
		authorizations[auth.BookingRequestID] = auth
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return authorizations, nil
}

func (r *PaymentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	authorizationID int64,
	currentStatus string,
	nextStatus string,
) (*models.PaymentAuthorization, error) {
	query := `
		UPDATE payment_authorizations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id, booking_request_id, client_id, coach_id, amount_cents, platform_fee_cents, status, created_at, updated_at
	`
	var auth models.PaymentAuthorization
	err := r.db.QueryRow(ctx, query, authorizationID, currentStatus, nextStatus).Scan(
		&auth.ID,
		&auth.BookingRequestID,
		&auth.ClientID,
		&auth.CoachID,
		&auth.AmountCents,
		&auth.PlatformFeeCents,
		&auth.Status,
		&auth.CreatedAt,
		&auth.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auth, nil
}
