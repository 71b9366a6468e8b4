package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/customadesign/acfl-booking-api/internal/models"
	"github.com/customadesign/acfl-booking-api/internal/repository"
	"github.com/customadesign/acfl-booking-api/internal/services"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	CreateRequest(ctx context.Context, clientID int64, input services.CreateRequestInput) (*models.BookingRequest, error)
	Accept(ctx context.Context, coachID int64, requestID int64, input services.AcceptRequestInput) (*models.BookingRequest, error)
	Reject(ctx context.Context, coachID int64, requestID int64, reason *string) (*models.BookingRequest, error)
	Cancel(ctx context.Context, actorID int64, role string, requestID int64) (*models.BookingRequest, error)
	GetRequest(ctx context.Context, actorID int64, role string, requestID int64) (*models.BookingRequestDetail, error)
	ListClientRequests(ctx context.Context, clientID int64, filter repository.BookingRequestListFilter) ([]models.BookingRequestDetail, error)
	ListCoachPending(ctx context.Context, coachID int64, limit int, offset int) ([]models.BookingRequest, int, error)
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	CoachID         int64   `json:"coach_id"`
	SessionType     string  `json:"session_type"`
	DurationMinutes int     `json:"duration_minutes"`
	PreferredDate   *string `json:"preferred_date"`
	PreferredTime   *string `json:"preferred_time"`
	AreaOfFocus     *string `json:"area_of_focus"`
	Notes           *string `json:"notes"`
}

type acceptBookingRequest struct {
	FinalPriceCents int64   `json:"final_price_cents"`
	CoachRateID     *int64  `json:"coach_rate_id"`
	CoachNotes      *string `json:"coach_notes"`
}

type rejectBookingRequest struct {
	Reason *string `json:"reason"`
}

func (h *BookingHandler) CreateRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.CoachID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coach_id is required"})
	}
	if !services.ValidSessionType(strings.TrimSpace(req.SessionType)) {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "session_type must be individual, group or package"})
	}
	if !services.ValidDuration(req.DurationMinutes) {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "duration_minutes must be one of 15, 30, 45, 60, 90, 120"})
	}

	request, err := h.service.CreateRequest(c.Context(), clientID, services.CreateRequestInput{
		CoachID:         req.CoachID,
		SessionType:     strings.TrimSpace(req.SessionType),
		DurationMinutes: req.DurationMinutes,
		PreferredDate:   req.PreferredDate,
		PreferredTime:   req.PreferredTime,
		AreaOfFocus:     req.AreaOfFocus,
		Notes:           req.Notes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

func (h *BookingHandler) ListClientRequests(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requests, err := h.service.ListClientRequests(c.Context(), clientID, repository.BookingRequestListFilter{
		Status: strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"requests": requests})
}

func (h *BookingHandler) ListCoachPending(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, limit := parsePageParams(c)
	requests, total, err := h.service.ListCoachPending(c.Context(), coachID, limit, (page-1)*limit)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests":   requests,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *BookingHandler) Accept(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var req acceptBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	// Zero is allowed when coach_rate_id supplies the price default.
	if req.FinalPriceCents < 0 {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "final_price_cents must not be negative"})
	}

	request, err := h.service.Accept(c.Context(), coachID, requestID, services.AcceptRequestInput{
		FinalPriceCents: req.FinalPriceCents,
		CoachRateID:     req.CoachRateID,
		CoachNotes:      req.CoachNotes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *BookingHandler) Reject(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var req rejectBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	request, err := h.service.Reject(c.Context(), coachID, requestID, req.Reason)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "coach") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.Cancel(c.Context(), actorID, role, requestID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *BookingHandler) GetRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "coach") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.GetRequest(c.Context(), actorID, role, requestID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrRateMismatch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrCoachUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrCoachNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Coach not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking request not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
