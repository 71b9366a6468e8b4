package models

import "time"

type CoachProfile struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	DisplayName      *string   `json:"display_name"`
	Bio              *string   `json:"bio"`
	Specialties      *[]string `json:"specialties"`
	IsVerified       bool      `json:"is_verified"`
	AcceptingClients bool      `json:"accepting_clients"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
