package models

import "time"

// BookingRequest statuses. Transitions are one-directional; the terminal
// set (rejected, cancelled, paid_confirmed, expired) accepts no further
// transitions.
const (
	BookingStatusPending         = "pending"
	BookingStatusCoachAccepted   = "coach_accepted"
	BookingStatusPaymentRequired = "payment_required"
	BookingStatusPaidConfirmed   = "paid_confirmed"
	BookingStatusRejected        = "rejected"
	BookingStatusCancelled       = "cancelled"
	BookingStatusExpired         = "expired"
)

const (
	SessionTypeIndividual = "individual"
	SessionTypeGroup      = "group"
	SessionTypePackage    = "package"
)

type BookingRequest struct {
	ID              int64      `json:"id"`
	ClientID        int64      `json:"client_id"`
	CoachID         int64      `json:"coach_id"`
	SessionType     string     `json:"session_type"`
	DurationMinutes int        `json:"duration_minutes"`
	PreferredDate   *string    `json:"preferred_date"`
	PreferredTime   *string    `json:"preferred_time"`
	AreaOfFocus     *string    `json:"area_of_focus"`
	Notes           *string    `json:"notes"`
	Status          string     `json:"status"`
	FinalPriceCents *int64     `json:"final_price_cents"`
	CoachRateID     *int64     `json:"coach_rate_id"`
	CoachNotes      *string    `json:"coach_notes"`
	RejectReason    *string    `json:"reject_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

type BookingRequestDetail struct {
	BookingRequest
	Payment *PaymentAuthorization `json:"payment,omitempty"`
}

// IsTerminalBookingStatus reports whether a request in the given status
// accepts no further transitions.
func IsTerminalBookingStatus(status string) bool {
	switch status {
	case BookingStatusRejected, BookingStatusCancelled,
		BookingStatusPaidConfirmed, BookingStatusExpired:
		return true
	}
	return false
}
