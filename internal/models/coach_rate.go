package models

import "time"

// CoachRate is a coach-defined price for a (session_type, duration) pair,
// used as an optional default when accepting a booking request. Editing
// rates never touches requests already in flight.
type CoachRate struct {
	ID              int64     `json:"id"`
	CoachID         int64     `json:"coach_id"`
	SessionType     string    `json:"session_type"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Label           *string   `json:"label"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
