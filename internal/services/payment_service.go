package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/customadesign/acfl-booking-api/internal/models"
	"github.com/customadesign/acfl-booking-api/internal/repository"
)

var ErrPriceNotSet = errors.New("final price not set")

type PaymentService struct {
	db          *pgxpool.Pool
	paymentRepo *repository.PaymentRepository
	bookingRepo *repository.BookingRequestRepository
	notifier    bookingNotifier
	events      BookingEventPublisher
	feePercent  decimal.Decimal
}

func NewPaymentService(
	db *pgxpool.Pool,
	paymentRepo *repository.PaymentRepository,
	bookingRepo *repository.BookingRequestRepository,
	notifier bookingNotifier,
	events BookingEventPublisher,
	feePercent decimal.Decimal,
) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		notifier:    notifier,
		events:      events,
		feePercent:  feePercent,
	}
}

type AuthorizationDetail struct {
	Authorization *models.PaymentAuthorization `json:"authorization"`
	Request       *models.BookingRequest       `json:"request"`
}

// PlatformFeeCents computes the marketplace cut of an amount using exact
// decimal arithmetic, rounding half up to whole cents.
func PlatformFeeCents(amountCents int64, feePercent decimal.Decimal) int64 {
	fee := decimal.NewFromInt(amountCents).
		Mul(feePercent).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return fee.IntPart()
}

// Authorize reserves funds for an accepted request and moves it to
// payment_required. One live authorization exists per request; calling
// authorize again while one is live returns it unchanged.
func (s *PaymentService) Authorize(
	ctx context.Context,
	clientID int64,
	bookingRequestID int64,
) (*AuthorizationDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRequestRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	request, err := txBookingRepo.GetByIDForUpdate(ctx, bookingRequestID)
	if err != nil {
		return nil, err
	}
	if request.ClientID != clientID {
		return nil, ErrForbidden
	}

	if request.Status == models.BookingStatusPaymentRequired {
		existing, err := txPaymentRepo.GetLiveByBookingRequestID(ctx, bookingRequestID)
		if err == nil {
			return &AuthorizationDetail{Authorization: existing, Request: request}, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	if request.Status != models.BookingStatusCoachAccepted {
		return nil, ErrInvalidStateTransition
	}
	if request.FinalPriceCents == nil || *request.FinalPriceCents <= 0 {
		return nil, ErrPriceNotSet
	}

	amount := *request.FinalPriceCents
	authorization, err := txPaymentRepo.Create(ctx, repository.CreatePaymentAuthorizationInput{
		BookingRequestID: request.ID,
		ClientID:         request.ClientID,
		CoachID:          request.CoachID,
		AmountCents:      amount,
		PlatformFeeCents: PlatformFeeCents(amount, s.feePercent),
	})
	if err != nil {
		return nil, err
	}

	updated, err := txBookingRepo.UpdateStatusIfCurrent(
		ctx,
		request.ID,
		models.BookingStatusCoachAccepted,
		models.BookingStatusPaymentRequired,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &AuthorizationDetail{Authorization: authorization, Request: updated}, nil
}

// Confirm records a completed client payment and moves the request to its
// paid_confirmed terminal state. Confirming an already confirmed request is
// idempotent.
func (s *PaymentService) Confirm(
	ctx context.Context,
	clientID int64,
	authorizationID int64,
) (*AuthorizationDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRequestRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	authorization, err := txPaymentRepo.GetByIDForUpdate(ctx, authorizationID)
	if err != nil {
		return nil, err
	}
	if authorization.ClientID != clientID {
		return nil, ErrForbidden
	}
	if authorization.Status != models.PaymentStatusAuthorized {
		return nil, ErrInvalidStateTransition
	}

	request, err := txBookingRepo.GetByIDForUpdate(ctx, authorization.BookingRequestID)
	if err != nil {
		return nil, err
	}
	if request.Status == models.BookingStatusPaidConfirmed {
		return &AuthorizationDetail{Authorization: authorization, Request: request}, nil
	}
	if request.Status != models.BookingStatusPaymentRequired {
		return nil, ErrInvalidStateTransition
	}

	confirmed, err := txBookingRepo.UpdateStatusIfCurrent(
		ctx,
		request.ID,
		models.BookingStatusPaymentRequired,
		models.BookingStatusPaidConfirmed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if s.events != nil {
		_ = s.events.PublishBookingConfirmed(ctx, confirmed, authorization)
	}
	if s.notifier != nil {
		s.notifier.NotifyBookingUpdate(confirmed.ClientID, confirmed, "booking.paid_confirmed")
		s.notifier.NotifyBookingUpdate(confirmed.CoachID, confirmed, "booking.paid_confirmed")
	}
	return &AuthorizationDetail{Authorization: authorization, Request: confirmed}, nil
}

// Capture charges the reserved funds after the session took place. Only the
// coach on a paid_confirmed request may capture.
func (s *PaymentService) Capture(
	ctx context.Context,
	coachID int64,
	authorizationID int64,
) (*AuthorizationDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRequestRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	authorization, err := txPaymentRepo.GetByIDForUpdate(ctx, authorizationID)
	if err != nil {
		return nil, err
	}
	if authorization.CoachID != coachID {
		return nil, ErrForbidden
	}
	if authorization.Status != models.PaymentStatusAuthorized {
		return nil, ErrInvalidStateTransition
	}

	request, err := txBookingRepo.GetByID(ctx, authorization.BookingRequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.BookingStatusPaidConfirmed {
		return nil, ErrInvalidStateTransition
	}

	captured, err := txPaymentRepo.UpdateStatusIfCurrent(
		ctx,
		authorizationID,
		models.PaymentStatusAuthorized,
		models.PaymentStatusCaptured,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &AuthorizationDetail{Authorization: captured, Request: request}, nil
}
