package models

import "time"

// PaymentAuthorization statuses. Funds are reserved at authorization and
// charged only at capture, after the session took place.
const (
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusVoided     = "voided"
)

type PaymentAuthorization struct {
	ID               int64     `json:"id"`
	BookingRequestID int64     `json:"booking_request_id"`
	ClientID         int64     `json:"client_id"`
	CoachID          int64     `json:"coach_id"`
	AmountCents      int64     `json:"amount_cents"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
