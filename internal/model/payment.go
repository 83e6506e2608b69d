package model

import "time"

// Payment attempt statuses. The simulated purchase flow only records
// success, but the ledger schema accepts the full taxonomy.
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment methods.
const (
	MethodPix  = "pix"
	MethodCard = "card"
)

// ValidMethod reports whether m is a supported payment method.
func ValidMethod(m string) bool {
	return m == MethodPix || m == MethodCard
}

// PaymentAttempt is one row of the append-only purchase ledger. ID and
// Date are assigned by the store at insert time, never by callers.
type PaymentAttempt struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	OfferingID string    `json:"offering_id"`
	Status     string    `json:"status"`
	Method     string    `json:"method"`
	Date       time.Time `json:"date"`
}
