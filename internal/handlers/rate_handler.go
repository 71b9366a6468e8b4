package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/customadesign/acfl-booking-api/internal/models"
	"github.com/customadesign/acfl-booking-api/internal/repository"
	"github.com/customadesign/acfl-booking-api/internal/services"
)

type RateHandler struct {
	service rateApplicationService
}

type rateApplicationService interface {
	CreateRate(ctx context.Context, coachID int64, input repository.CreateCoachRateInput) (*models.CoachRate, error)
	ListRates(ctx context.Context, coachID int64) ([]models.CoachRate, error)
	UpdateRate(ctx context.Context, coachID int64, rateID int64, input repository.UpdateCoachRateInput) (*models.CoachRate, error)
	DeleteRate(ctx context.Context, coachID int64, rateID int64) error
}

func NewRateHandler(service *services.RateService) *RateHandler {
	return &RateHandler{service: service}
}

type createRateRequest struct {
	SessionType     string  `json:"session_type"`
	DurationMinutes int     `json:"duration_minutes"`
	PriceCents      int64   `json:"price_cents"`
	Label           *string `json:"label"`
}

type updateRateRequest struct {
	PriceCents *int64  `json:"price_cents"`
	Label      *string `json:"label"`
	IsActive   *bool   `json:"is_active"`
}

// ListRates is readable by both roles: clients browse a coach's catalog
// before requesting a session, coaches review their own.
func (h *RateHandler) ListRates(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "coach") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	rates, err := h.service.ListRates(c.Context(), coachID)
	if err != nil {
		return mapRateError(c, err)
	}

	return c.JSON(fiber.Map{"rates": rates})
}

func (h *RateHandler) CreateRate(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	pathCoachID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}
	if pathCoachID != coachID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	rate, err := h.service.CreateRate(c.Context(), coachID, repository.CreateCoachRateInput{
		SessionType:     strings.TrimSpace(req.SessionType),
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Label:           req.Label,
	})
	if err != nil {
		return mapRateError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rate": rate})
}

func (h *RateHandler) UpdateRate(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	rateID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rate id"})
	}

	var req updateRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	rate, err := h.service.UpdateRate(c.Context(), coachID, rateID, repository.UpdateCoachRateInput{
		PriceCents: req.PriceCents,
		Label:      req.Label,
		IsActive:   req.IsActive,
	})
	if err != nil {
		return mapRateError(c, err)
	}

	return c.JSON(fiber.Map{"rate": rate})
}

func (h *RateHandler) DeleteRate(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseActorUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	rateID, err := parsePathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rate id"})
	}

	if err := h.service.DeleteRate(c.Context(), coachID, rateID); err != nil {
		return mapRateError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func mapRateError(c *fiber.Ctx, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "A rate for this session type and duration already exists"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rate not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process rate request"})
	}
}
