package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/customadesign/acfl-booking-api/internal/services"
)

type PaymentHandler struct {
	service paymentApplicationService
}

type paymentApplicationService interface {
	Authorize(ctx context.Context, clientID int64, bookingRequestID int64) (*services.AuthorizationDetail, error)
	Confirm(ctx context.Context, clientID int64, authorizationID int64) (*services.AuthorizationDetail, error)
	Capture(ctx context.Context, coachID int64, authorizationID int64) (*services.AuthorizationDetail, error)
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type authorizeRequest struct {
	BookingRequestID int64 `json:"booking_request_id"`
}

func (h *PaymentHandler) Authorize(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req authorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.BookingRequestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "booking_request_id is required"})
	}

	detail, err := h.service.Authorize(c.Context(), clientID, req.BookingRequestID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(detail)
}

func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	authorizationID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid authorization id"})
	}

	detail, err := h.service.Confirm(c.Context(), clientID, authorizationID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(detail)
}

func (h *PaymentHandler) Capture(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	authorizationID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid authorization id"})
	}

	detail, err := h.service.Capture(c.Context(), coachID, authorizationID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(detail)
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrPriceNotSet):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Authorization not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payment request"})
	}
}
