package models

import "time"

type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
)

// PaymentNotice records every payment event received, whatever its effect, so
// refunds for expired or dead holds can be reconciled out of band.
type PaymentNotice struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	PaymentReference string         `gorm:"type:varchar(100);not null;index" json:"payment_reference"`
	ReservationID    *string        `gorm:"type:varchar(36);index" json:"reservation_id,omitempty"`
	Outcome          PaymentOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	AmountCents      int64          `gorm:"not null;default:0" json:"amount_cents"`
	Source           string         `gorm:"type:varchar(20);not null" json:"source"`
	Disposition      string         `gorm:"type:varchar(40);not null" json:"disposition"`
	ReceivedAt       time.Time      `gorm:"not null" json:"received_at"`
}
