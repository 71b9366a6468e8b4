package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/customadesign/acfl-booking-api/internal/models"
	"github.com/customadesign/acfl-booking-api/internal/repository"
	"github.com/customadesign/acfl-booking-api/internal/services"
)

type stubBookingService struct {
	createResult     *models.BookingRequest
	createErr        error
	acceptResult     *models.BookingRequest
	acceptErr        error
	rejectResult     *models.BookingRequest
	rejectErr        error
	cancelResult     *models.BookingRequest
	cancelErr        error
	getResult        *models.BookingRequestDetail
	getErr           error
	listResult       []models.BookingRequestDetail
	listErr          error
	pendingResult    []models.BookingRequest
	pendingTotal     int
	pendingErr       error
	lastActorID      int64
	lastRole         string
	lastRequestID    int64
	lastCreateInput  services.CreateRequestInput
	lastAcceptInput  services.AcceptRequestInput
	lastRejectReason *string
	lastListFilter   repository.BookingRequestListFilter
	lastLimit        int
	lastOffset       int
}

func (s *stubBookingService) CreateRequest(_ context.Context, clientID int64, input services.CreateRequestInput) (*models.BookingRequest, error) {
	s.lastActorID = clientID
	s.lastCreateInput = input
	return s.createResult, s.createErr
}

func (s *stubBookingService) Accept(_ context.Context, coachID int64, requestID int64, input services.AcceptRequestInput) (*models.BookingRequest, error) {
	s.lastActorID = coachID
	s.lastRequestID = requestID
	s.lastAcceptInput = input
	return s.acceptResult, s.acceptErr
}

func (s *stubBookingService) Reject(_ context.Context, coachID int64, requestID int64, reason *string) (*models.BookingRequest, error) {
	s.lastActorID = coachID
	s.lastRequestID = requestID
	s.lastRejectReason = reason
	return s.rejectResult, s.rejectErr
}

func (s *stubBookingService) Cancel(_ context.Context, actorID int64, role string, requestID int64) (*models.BookingRequest, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastRequestID = requestID
	return s.cancelResult, s.cancelErr
}

func (s *stubBookingService) GetRequest(_ context.Context, actorID int64, role string, requestID int64) (*models.BookingRequestDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastRequestID = requestID
	return s.getResult, s.getErr
}

func (s *stubBookingService) ListClientRequests(_ context.Context, clientID int64, filter repository.BookingRequestListFilter) ([]models.BookingRequestDetail, error) {
	s.lastActorID = clientID
	s.lastListFilter = filter
	return s.listResult, s.listErr
}

func (s *stubBookingService) ListCoachPending(_ context.Context, coachID int64, limit int, offset int) ([]models.BookingRequest, int, error) {
	s.lastActorID = coachID
	s.lastLimit = limit
	s.lastOffset = offset
	return s.pendingResult, s.pendingTotal, s.pendingErr
}

func newBookingTestApp(handler *BookingHandler, role string, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/bookings/request", handler.CreateRequest)
	app.Get("/api/bookings/client", handler.ListClientRequests)
	app.Get("/api/bookings/coach/pending", handler.ListCoachPending)
	app.Post("/api/bookings/coach/requests/:id/accept", handler.Accept)
	app.Post("/api/bookings/coach/requests/:id/reject", handler.Reject)
	app.Get("/api/bookings/:id", handler.GetRequest)
	app.Post("/api/bookings/:id/cancel", handler.Cancel)
	return app
}

var testExpiry = time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

func TestCreateRequestReturnsCreatedRequest(t *testing.T) {
	service := &stubBookingService{
		createResult: &models.BookingRequest{
			ID: 11, ClientID: 42, CoachID: 7,
			SessionType: "individual", DurationMinutes: 60,
			Status: "pending", ExpiresAt: &testExpiry,
		},
	}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/request", strings.NewReader(`{
		"coach_id": 7,
		"session_type": "individual",
		"duration_minutes": 60,
		"area_of_focus": "career change",
		"notes": "prefer mornings"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("expected client id 42, got %d", service.lastActorID)
	}
	if service.lastCreateInput.CoachID != 7 || service.lastCreateInput.DurationMinutes != 60 {
		t.Fatalf("unexpected create input: %+v", service.lastCreateInput)
	}
	if service.lastCreateInput.AreaOfFocus == nil || *service.lastCreateInput.AreaOfFocus != "career change" {
		t.Fatalf("expected area of focus passed through, got %+v", service.lastCreateInput.AreaOfFocus)
	}

	var body struct {
		Request models.BookingRequest `json:"request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Request.Status != "pending" {
		t.Fatalf("expected pending status, got %q", body.Request.Status)
	}
}

func TestCreateRequestForbiddenForCoaches(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/request", strings.NewReader(`{
		"coach_id": 7, "session_type": "individual", "duration_minutes": 60
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateRequestRejectsInvalidDuration(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/request", strings.NewReader(`{
		"coach_id": 7, "session_type": "individual", "duration_minutes": 25
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastActorID != 0 {
		t.Fatal("service must not be called for invalid input")
	}
}

func TestCreateRequestConflictWhenCoachUnavailable(t *testing.T) {
	service := &stubBookingService{createErr: services.ErrCoachUnavailable}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/request", strings.NewReader(`{
		"coach_id": 7, "session_type": "individual", "duration_minutes": 60
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestAcceptPassesPriceAndRate(t *testing.T) {
	price := int64(15000)
	service := &stubBookingService{
		acceptResult: &models.BookingRequest{
			ID: 11, ClientID: 42, CoachID: 7,
			Status: "coach_accepted", FinalPriceCents: &price,
		},
	}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/coach/requests/11/accept", strings.NewReader(`{
		"final_price_cents": 15000,
		"coach_rate_id": 3,
		"coach_notes": "bring your goals worksheet"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRequestID != 11 {
		t.Fatalf("expected request id 11, got %d", service.lastRequestID)
	}
	if service.lastAcceptInput.FinalPriceCents != 15000 {
		t.Fatalf("expected price 15000, got %d", service.lastAcceptInput.FinalPriceCents)
	}
	if service.lastAcceptInput.CoachRateID == nil || *service.lastAcceptInput.CoachRateID != 3 {
		t.Fatalf("expected coach rate id 3, got %+v", service.lastAcceptInput.CoachRateID)
	}
}

func TestAcceptAllowsZeroPriceWithRateDefault(t *testing.T) {
	price := int64(15000)
	rateID := int64(3)
	service := &stubBookingService{
		acceptResult: &models.BookingRequest{
			ID: 11, ClientID: 42, CoachID: 7,
			Status: "coach_accepted", FinalPriceCents: &price, CoachRateID: &rateID,
		},
	}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/coach/requests/11/accept", strings.NewReader(`{
		"coach_rate_id": 3
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastAcceptInput.FinalPriceCents != 0 {
		t.Fatalf("expected zero price passed through for rate default, got %d", service.lastAcceptInput.FinalPriceCents)
	}
	if service.lastAcceptInput.CoachRateID == nil || *service.lastAcceptInput.CoachRateID != 3 {
		t.Fatalf("expected coach rate id 3, got %+v", service.lastAcceptInput.CoachRateID)
	}
}

func TestAcceptRejectsNegativePrice(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/coach/requests/11/accept", strings.NewReader(`{
		"final_price_cents": -100
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastActorID != 0 {
		t.Fatal("service must not be called for a negative price")
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "final_price_cents must not be negative" {
		t.Fatalf("unexpected error message: %q", body.Error)
	}
}

func TestAcceptReturnsUnprocessableForInvalidTransition(t *testing.T) {
	service := &stubBookingService{acceptErr: services.ErrInvalidStateTransition}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/coach/requests/11/accept", strings.NewReader(`{
		"final_price_cents": 15000
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestAcceptReturnsBadRequestForRateMismatch(t *testing.T) {
	service := &stubBookingService{acceptErr: services.ErrRateMismatch}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/coach/requests/11/accept", strings.NewReader(`{
		"coach_rate_id": 9
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRejectPassesReason(t *testing.T) {
	reason := "schedule conflict"
	service := &stubBookingService{
		rejectResult: &models.BookingRequest{
			ID: 11, ClientID: 42, CoachID: 7,
			Status: "rejected", RejectReason: &reason,
		},
	}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/coach/requests/11/reject", strings.NewReader(`{
		"reason": "schedule conflict"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRejectReason == nil || *service.lastRejectReason != "schedule conflict" {
		t.Fatalf("expected reason passed through, got %+v", service.lastRejectReason)
	}
}

func TestCancelForbiddenForNonParticipant(t *testing.T) {
	service := &stubBookingService{cancelErr: services.ErrForbidden}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "99")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/11/cancel", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCancelReturnsUnprocessableAfterPaymentConfirmed(t *testing.T) {
	service := &stubBookingService{cancelErr: services.ErrInvalidStateTransition}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/11/cancel", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastRole != "client" || service.lastActorID != 42 {
		t.Fatalf("expected client 42 as actor, got %s %d", service.lastRole, service.lastActorID)
	}
}

func TestGetRequestReturnsNotFound(t *testing.T) {
	service := &stubBookingService{getErr: pgx.ErrNoRows}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListClientRequestsPassesStatusFilter(t *testing.T) {
	service := &stubBookingService{
		listResult: []models.BookingRequestDetail{
			{BookingRequest: models.BookingRequest{ID: 11, Status: "paid_confirmed"}},
		},
	}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/client?status=paid_confirmed", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.Status != "paid_confirmed" {
		t.Fatalf("unexpected filter: %+v", service.lastListFilter)
	}
}

func TestListCoachPendingPaginates(t *testing.T) {
	service := &stubBookingService{
		pendingResult: []models.BookingRequest{{ID: 11, Status: "pending"}},
		pendingTotal:  23,
	}
	app := newBookingTestApp(&BookingHandler{service: service}, "coach", "7")

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/coach/pending?page=2&limit=10", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastLimit != 10 || service.lastOffset != 10 {
		t.Fatalf("expected limit 10 offset 10, got %d %d", service.lastLimit, service.lastOffset)
	}

	var body struct {
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Pagination.Total != 23 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestBookingHandlerUnauthorizedWithoutUserID(t *testing.T) {
	service := &stubBookingService{}
	handler := &BookingHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", "client")
		return c.Next()
	})
	app.Get("/api/bookings/client", handler.ListClientRequests)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/client", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMapBookingErrorDefaultsToInternalError(t *testing.T) {
	service := &stubBookingService{getErr: errors.New("connection refused")}
	app := newBookingTestApp(&BookingHandler{service: service}, "client", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/11", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
