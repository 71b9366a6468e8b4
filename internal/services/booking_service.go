package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/customadesign/acfl-booking-api/internal/models"
	"github.com/customadesign/acfl-booking-api/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrCoachNotFound          = errors.New("coach not found")
	ErrCoachUnavailable       = errors.New("coach is not accepting clients")
	ErrRateMismatch           = errors.New("rate does not match request")
)

// allowedDurations is the enumerated set of bookable session lengths.
var allowedDurations = map[int]struct{}{
	15: {}, 30: {}, 45: {}, 60: {}, 90: {}, 120: {},
}

var allowedSessionTypes = map[string]struct{}{
	models.SessionTypeIndividual: {},
	models.SessionTypeGroup:      {},
	models.SessionTypePackage:    {},
}

// bookingTransitions is the full lifecycle edge set. Everything outside this
// table is forbidden, which makes the terminal statuses absorbing.
var bookingTransitions = map[string][]string{
	models.BookingStatusPending: {
		models.BookingStatusCoachAccepted,
		models.BookingStatusRejected,
		models.BookingStatusCancelled,
		models.BookingStatusExpired,
	},
	models.BookingStatusCoachAccepted: {
		models.BookingStatusPaymentRequired,
		models.BookingStatusCancelled,
	},
	models.BookingStatusPaymentRequired: {
		models.BookingStatusPaidConfirmed,
		models.BookingStatusCancelled,
	},
}

// CanTransitionBooking reports whether from -> to is an allowed lifecycle edge.
func CanTransitionBooking(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidSessionType(sessionType string) bool {
	_, ok := allowedSessionTypes[sessionType]
	return ok
}

func ValidDuration(durationMinutes int) bool {
	_, ok := allowedDurations[durationMinutes]
	return ok
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type coachProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.CoachProfile, error)
}

type bookingNotifier interface {
	NotifyBookingUpdate(userID int64, request *models.BookingRequest, event string)
}

type BookingEventPublisher interface {
	PublishBookingAccepted(ctx context.Context, request *models.BookingRequest) error
	PublishBookingConfirmed(ctx context.Context, request *models.BookingRequest, authorization *models.PaymentAuthorization) error
}

type BookingService struct {
	db               *pgxpool.Pool
	bookingRepo      *repository.BookingRequestRepository
	paymentRepo      *repository.PaymentRepository
	rateRepo         *repository.CoachRateRepository
	userRepo         userReader
	coachProfileRepo coachProfileReader
	notifier         bookingNotifier
	events           BookingEventPublisher
	requestTTL       time.Duration
	paymentWindow    time.Duration
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRequestRepository,
	paymentRepo *repository.PaymentRepository,
	rateRepo *repository.CoachRateRepository,
	userRepo userReader,
	coachProfileRepo coachProfileReader,
	notifier bookingNotifier,
	events BookingEventPublisher,
	requestTTL time.Duration,
	paymentWindow time.Duration,
) *BookingService {
	return &BookingService{
		db:               db,
		bookingRepo:      bookingRepo,
		paymentRepo:      paymentRepo,
		rateRepo:         rateRepo,
		userRepo:         userRepo,
		coachProfileRepo: coachProfileRepo,
		notifier:         notifier,
		events:           events,
		requestTTL:       requestTTL,
		paymentWindow:    paymentWindow,
	}
}

type CreateRequestInput struct {
	CoachID         int64
	SessionType     string
	DurationMinutes int
	PreferredDate   *string
	PreferredTime   *string
	AreaOfFocus     *string
	Notes           *string
}

func (s *BookingService) CreateRequest(
	ctx context.Context,
	clientID int64,
	input CreateRequestInput,
) (*models.BookingRequest, error) {
	if input.CoachID <= 0 || clientID == input.CoachID {
		return nil, ErrInvalidInput
	}
	if !ValidSessionType(input.SessionType) || !ValidDuration(input.DurationMinutes) {
		return nil, ErrInvalidInput
	}

	coach, err := s.userRepo.GetByID(ctx, input.CoachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if coach.Role != "coach" {
		return nil, ErrCoachNotFound
	}

	profile, err := s.coachProfileRepo.GetByUserID(ctx, input.CoachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if !profile.AcceptingClients {
		return nil, ErrCoachUnavailable
	}

	request, err := s.bookingRepo.Create(ctx, repository.CreateBookingRequestInput{
		ClientID:        clientID,
		CoachID:         input.CoachID,
		SessionType:     input.SessionType,
		DurationMinutes: input.DurationMinutes,
		PreferredDate:   trimOptional(input.PreferredDate),
		PreferredTime:   trimOptional(input.PreferredTime),
		AreaOfFocus:     trimOptional(input.AreaOfFocus),
		Notes:           trimOptional(input.Notes),
		ExpiresAt:       time.Now().UTC().Add(s.requestTTL),
	})
	if err != nil {
		return nil, err
	}

	s.notify(request.CoachID, request, "booking.requested")
	return request, nil
}

type AcceptRequestInput struct {
	FinalPriceCents int64
	CoachRateID     *int64
	CoachNotes      *string
}

// Accept moves a pending request to coach_accepted, fixing the final price.
// When no explicit price is given, the referenced coach rate supplies the
// default; the rate must belong to the coach and match the requested session
// shape.
func (s *BookingService) Accept(
	ctx context.Context,
	coachID int64,
	requestID int64,
	input AcceptRequestInput,
) (*models.BookingRequest, error) {
	if input.FinalPriceCents < 0 {
		return nil, ErrInvalidInput
	}
	if input.FinalPriceCents == 0 && input.CoachRateID == nil {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRequestRepository(tx)
	txRateRepo := repository.NewCoachRateRepository(tx)

	request, err := txBookingRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.CoachID != coachID {
		return nil, ErrForbidden
	}
	if request.Status != models.BookingStatusPending {
		return nil, ErrInvalidStateTransition
	}

	finalPrice := input.FinalPriceCents
	if input.CoachRateID != nil {
		rate, err := txRateRepo.GetByID(ctx, *input.CoachRateID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrRateMismatch
			}
			return nil, err
		}
		if rate.CoachID != coachID || !rate.IsActive {
			return nil, ErrRateMismatch
		}
		if rate.SessionType != request.SessionType || rate.DurationMinutes != request.DurationMinutes {
			return nil, ErrRateMismatch
		}
		if finalPrice == 0 {
			finalPrice = rate.PriceCents
		}
	}
	if finalPrice <= 0 {
		return nil, ErrInvalidInput
	}

	accepted, err := txBookingRepo.AcceptIfPending(ctx, requestID, repository.AcceptBookingRequestInput{
		FinalPriceCents: finalPrice,
		CoachRateID:     input.CoachRateID,
		CoachNotes:      trimOptional(input.CoachNotes),
		PaymentWindow:   s.paymentWindow,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishAccepted(ctx, accepted)
	s.notify(accepted.ClientID, accepted, "booking.accepted")
	return accepted, nil
}

// Reject is terminal and only valid from pending; no price is ever recorded.
func (s *BookingService) Reject(
	ctx context.Context,
	coachID int64,
	requestID int64,
	reason *string,
) (*models.BookingRequest, error) {
	request, err := s.bookingRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.CoachID != coachID {
		return nil, ErrForbidden
	}
	if request.Status != models.BookingStatusPending {
		return nil, ErrInvalidStateTransition
	}

	rejected, err := s.bookingRepo.RejectIfPending(ctx, requestID, trimOptional(reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	s.notify(rejected.ClientID, rejected, "booking.rejected")
	return rejected, nil
}

// Cancel is available to either party until payment confirms. A live payment
// authorization on the request is voided in the same transaction.
func (s *BookingService) Cancel(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.BookingRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRequestRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	request, err := txBookingRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isBookingParty(role, actorID, request) {
		return nil, ErrForbidden
	}
	if !CanTransitionBooking(request.Status, models.BookingStatusCancelled) {
		return nil, ErrInvalidStateTransition
	}

	authorization, err := txPaymentRepo.GetLiveByBookingRequestID(ctx, requestID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if authorization != nil && authorization.Status == models.PaymentStatusAuthorized {
		if _, err := txPaymentRepo.UpdateStatusIfCurrent(
			ctx,
			authorization.ID,
			models.PaymentStatusAuthorized,
			models.PaymentStatusVoided,
		); err != nil {
			return nil, err
		}
	}

	cancelled, err := txBookingRepo.UpdateStatusIfCurrent(
		ctx,
		requestID,
		request.Status,
		models.BookingStatusCancelled,
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

	counterparty := cancelled.ClientID
	if role == "client" {
		counterparty = cancelled.CoachID
	}
	s.notify(counterparty, cancelled, "booking.cancelled")
	return cancelled, nil
}

func (s *BookingService) GetRequest(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.BookingRequestDetail, error) {
	request, err := s.bookingRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isBookingParty(role, actorID, request) {
		return nil, ErrForbidden
	}

	detail := &models.BookingRequestDetail{BookingRequest: *request}
	authorization, err := s.paymentRepo.GetLiveByBookingRequestID(ctx, requestID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Payment = authorization
	}
	return detail, nil
}

func (s *BookingService) ListClientRequests(
	ctx context.Context,
	clientID int64,
	filter repository.BookingRequestListFilter,
) ([]models.BookingRequestDetail, error) {
	requests, err := s.bookingRepo.ListByClientID(ctx, clientID, filter)
	if err != nil {
		return nil, err
	}

	requestIDs := make([]int64, 0, len(requests))
	for _, request := range requests {
		requestIDs = append(requestIDs, request.ID)
	}

	authorizationsByRequest, err := s.paymentRepo.ListByBookingRequestIDs(ctx, requestIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.BookingRequestDetail, 0, len(requests))
	for _, request := range requests {
		detail := models.BookingRequestDetail{BookingRequest: request}
		if authorization, ok := authorizationsByRequest[request.ID]; ok {
			authorizationCopy := authorization
			detail.Payment = &authorizationCopy
		}
		details = append(details, detail)
	}

	return details, nil
}

func (s *BookingService) ListCoachPending(
	ctx context.Context,
	coachID int64,
	limit int,
	offset int,
) ([]models.BookingRequest, int, error) {
	requests, err := s.bookingRepo.ListPendingByCoachID(ctx, coachID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.bookingRepo.CountPendingByCoachID(ctx, coachID)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// ExpireOverdue sweeps pending requests past their expiry horizon. Returns
// how many were expired.
func (s *BookingService) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := s.bookingRepo.ExpireOverduePending(ctx)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		s.notify(expired[i].ClientID, &expired[i], "booking.expired")
	}
	return len(expired), nil
}

func (s *BookingService) notify(userID int64, request *models.BookingRequest, event string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyBookingUpdate(userID, request, event)
}

func (s *BookingService) publishAccepted(ctx context.Context, request *models.BookingRequest) {
	if s.events == nil {
		return
	}
	// Broker failures must not fail the accept; the publisher logs them.
	_ = s.events.PublishBookingAccepted(ctx, request)
}

func isBookingParty(role string, actorID int64, request *models.BookingRequest) bool {
	if role == "client" {
		return request.ClientID == actorID
	}
	if role == "coach" {
		return request.CoachID == actorID
	}
	return false
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
