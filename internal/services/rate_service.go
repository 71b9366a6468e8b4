package services

import (
	"context"

	"github.com/customadesign/acfl-booking-api/internal/models"
	"github.com/customadesign/acfl-booking-api/internal/repository"
)

type rateRepo interface {
	Create(ctx context.Context, input repository.CreateCoachRateInput) (*models.CoachRate, error)
	GetByID(ctx context.Context, rateID int64) (*models.CoachRate, error)
	ListByCoachID(ctx context.Context, coachID int64) ([]models.CoachRate, error)
	UpdatePartial(ctx context.Context, rateID int64, input repository.UpdateCoachRateInput) (*models.CoachRate, error)
	Delete(ctx context.Context, rateID int64) error
}

// RateService owns the coach rate catalog. Edits here never touch booking
// requests already in flight; rates are only read as defaults at accept time.
type RateService struct {
	rateRepo rateRepo
}

func NewRateService(repo rateRepo) *RateService {
	return &RateService{rateRepo: repo}
}

func (s *RateService) CreateRate(
	ctx context.Context,
	coachID int64,
	input repository.CreateCoachRateInput,
) (*models.CoachRate, error) {
	if !ValidSessionType(input.SessionType) || !ValidDuration(input.DurationMinutes) {
		return nil, ErrInvalidInput
	}
	if input.PriceCents <= 0 {
		return nil, ErrInvalidInput
	}
	input.CoachID = coachID
	input.Label = trimOptional(input.Label)
	return s.rateRepo.Create(ctx, input)
}

func (s *RateService) ListRates(ctx context.Context, coachID int64) ([]models.CoachRate, error) {
	return s.rateRepo.ListByCoachID(ctx, coachID)
}

func (s *RateService) UpdateRate(
	ctx context.Context,
	coachID int64,
	rateID int64,
	input repository.UpdateCoachRateInput,
) (*models.CoachRate, error) {
	if input.PriceCents != nil && *input.PriceCents <= 0 {
		return nil, ErrInvalidInput
	}

	rate, err := s.rateRepo.GetByID(ctx, rateID)
	if err != nil {
		return nil, err
	}
	if rate.CoachID != coachID {
		return nil, ErrForbidden
	}

	input.Label = trimOptional(input.Label)
	return s.rateRepo.UpdatePartial(ctx, rateID, input)
}

func (s *RateService) DeleteRate(ctx context.Context, coachID int64, rateID int64) error {
	rate, err := s.rateRepo.GetByID(ctx, rateID)
	if err != nil {
		return err
	}
	if rate.CoachID != coachID {
		return ErrForbidden
	}
	return s.rateRepo.Delete(ctx, rateID)
}
