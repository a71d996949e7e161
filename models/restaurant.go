package models

import "time"

const (
	DefaultHoldTTLMinutes             = 15
	DefaultReservationDurationMinutes = 90
	DefaultCancellationWindowHours    = 12
)

// Restaurant carries the per-restaurant reservation policy. Zero values mean
// "use the default".
type Restaurant struct {
	ID                         uint      `gorm:"primaryKey" json:"id"`
	Name                       string    `gorm:"type:varchar(255);not null" json:"name"`
	Timezone                   string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	HoldTTLMinutes             int       `gorm:"not null;default:0" json:"hold_ttl_minutes"`
	ReservationDurationMinutes int       `gorm:"not null;default:0" json:"reservation_duration_minutes"`
	CancellationWindowHours    int       `gorm:"not null;default:0" json:"cancellation_window_hours"`
	StrictHoldConflicts        bool      `gorm:"not null;default:false" json:"strict_hold_conflicts"`
	CreatedAt                  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt                  time.Time `gorm:"not null" json:"updated_at"`
}
