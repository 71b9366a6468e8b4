// Package events defines the payloads published to the message broker when a
// booking request reaches a milestone. They carry enough context for
// downstream notification and analytics consumers to act without querying
// the primary database.
package events

type BookingAcceptedEvent struct {
	BookingRequestID int64  `json:"booking_request_id"`
	ClientID         int64  `json:"client_id"`
	CoachID          int64  `json:"coach_id"`
	SessionType      string `json:"session_type"`
	DurationMinutes  int    `json:"duration_minutes"`
	FinalPriceCents  int64  `json:"final_price_cents"`
	AcceptedAt       string `json:"accepted_at"`
}

type BookingConfirmedEvent struct {
	BookingRequestID int64  `json:"booking_request_id"`
	AuthorizationID  int64  `json:"authorization_id"`
	ClientID         int64  `json:"client_id"`
	CoachID          int64  `json:"coach_id"`
	SessionType      string `json:"session_type"`
	DurationMinutes  int    `json:"duration_minutes"`
	AmountCents      int64  `json:"amount_cents"`
	PlatformFeeCents int64  `json:"platform_fee_cents"`
	ConfirmedAt      string `json:"confirmed_at"`
}
