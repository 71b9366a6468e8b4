package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/customadesign/acfl-booking-api/internal/models"
)

type CreateCoachRateInput struct {
	CoachID         int64
	SessionType     string
	DurationMinutes int
	PriceCents      int64
	Label           *string
}

type UpdateCoachRateInput struct {
	PriceCents *int64
	Label      *string
	IsActive   *bool
}

type CoachRateRepository struct {
	db DBTX
}

func NewCoachRateRepository(db DBTX) *CoachRateRepository {
	return &CoachRateRepository{db: db}
}

func (r *CoachRateRepository) Create(ctx context.Context, input CreateCoachRateInput) (*models.CoachRate, error) {
	query := `
		INSERT INTO coach_rates (coach_id, session_type, duration_min, price_cents, label)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, coach_id, session_type, duration_min, price_cents, label, is_active, created_at, updated_at
	`
	var rate models.CoachRate
	err := r.db.QueryRow(ctx, query,
		input.CoachID,
		input.SessionType,
		input.DurationMinutes,
		input.PriceCents,
		input.Label,
	).Scan(
		&rate.ID,
		&rate.CoachID,
		&rate.SessionType,
		&rate.DurationMinutes,
		&rate.PriceCents,
		&rate.Label,
		&rate.IsActive,
		&rate.CreatedAt,
		&rate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *CoachRateRepository) GetByID(ctx context.Context, rateID int64) (*models.CoachRate, error) {
	query := `
		SELECT id, coach_id, session_type, duration_min, price_cents, label, is_active, created_at, updated_at
		FROM coach_rates
		WHERE id = $1
	`
	var rate models.CoachRate
	err := r.db.QueryRow(ctx, query, rateID).Scan(
		&rate.ID,
		&rate.CoachID,
		&rate.SessionType,
		&rate.DurationMinutes,
		&rate.PriceCents,
		&rate.Label,
		&rate.IsActive,
		&rate.CreatedAt,
		&rate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *CoachRateRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.CoachRate, error) {
	query := `
		SELECT id, coach_id, session_type, duration_min, price_cents, label, is_active, created_at, updated_at
		FROM coach_rates
		WHERE coach_id = $1 AND is_active = TRUE
		ORDER BY session_type ASC, duration_min ASC
	`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make([]models.CoachRate, 0)
	for rows.Next() {
		var rate models.CoachRate
		if err := rows.Scan(
			&rate.ID,
			&rate.CoachID,
			&rate.SessionType,
			&rate.DurationMinutes,
			&rate.PriceCents,
			&rate.Label,
			&rate.IsActive,
			&rate.CreatedAt,
			&rate.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rates, nil
}

func (r *CoachRateRepository) UpdatePartial(
	ctx context.Context,
	rateID int64,
	input UpdateCoachRateInput,
) (*models.CoachRate, error) {
	query := `
		UPDATE coach_rates
		SET price_cents = COALESCE($2, price_cents),
			label = COALESCE($3, label),
			is_active = COALESCE($4, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, coach_id, session_type, duration_min, price_cents, label, is_active, created_at, updated_at
	`
	var rate models.CoachRate
	err := r.db.QueryRow(ctx, query, rateID, input.PriceCents, input.Label, input.IsActive).Scan(
		&rate.ID,
		&rate.CoachID,
		&rate.SessionType,
		&rate.DurationMinutes,
		&rate.PriceCents,
		&rate.Label,
		&rate.IsActive,
		&rate.CreatedAt,
		&rate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *CoachRateRepository) Delete(ctx context.Context, rateID int64) error {
	query := `DELETE FROM coach_rates WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, rateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
