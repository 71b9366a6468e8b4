package repository

import (
	"context"

	"github.com/customadesign/acfl-booking-api/internal/models"
)

type CoachProfileRepository struct {
	db DBTX
}

func NewCoachProfileRepository(db DBTX) *CoachProfileRepository {
	return &CoachProfileRepository{db: db}
}

func (r *CoachProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO coach_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *CoachProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.CoachProfile, error) {
	query := `
		SELECT id, user_id, display_name, bio, specialties, is_verified,
			   accepting_clients, created_at, updated_at
		FROM coach_profiles
		WHERE user_id = $1
	`
	var profile models.CoachProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.Specialties,
		&profile.IsVerified,
		&profile.AcceptingClients,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateCoachProfileInput struct {
	DisplayName      *string
	Bio              *string
	Specialties      *[]string
	AcceptingClients *bool
}

func (r *CoachProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateCoachProfileInput) (*models.CoachProfile, error) {
	query := `
		UPDATE coach_profiles
		SET display_name = COALESCE($1, display_name),
			bio = COALESCE($2, bio),
			specialties = COALESCE($3, specialties),
			accepting_clients = COALESCE($4, accepting_clients),
			updated_at = NOW()
		WHERE user_id = $5
		RETURNING id, user_id, display_name, bio, specialties, is_verified,
				  accepting_clients, created_at, updated_at
	`
	var profile models.CoachProfile
	err := r.db.QueryRow(ctx, query,
		req.DisplayName,
		req.Bio,
		req.Specialties,
		req.AcceptingClients,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.Specialties,
		&profile.IsVerified,
		&profile.AcceptingClients,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
