package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationTentative ReservationStatus = "tentative"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationSeated    ReservationStatus = "seated"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
	ReservationNoShow    ReservationStatus = "no_show"
)

// ReservationStatuses lists every status, in lifecycle order.
var ReservationStatuses = []ReservationStatus{
	ReservationTentative,
	ReservationConfirmed,
	ReservationSeated,
	ReservationCompleted,
	ReservationCancelled,
	ReservationExpired,
	ReservationNoShow,
}

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationTentative, ReservationConfirmed, ReservationSeated,
		ReservationCompleted, ReservationCancelled, ReservationExpired, ReservationNoShow:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may leave s.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationCompleted, ReservationCancelled, ReservationExpired, ReservationNoShow:
		return true
	case ReservationTentative, ReservationConfirmed, ReservationSeated:
		return false
	default:
		return false
	}
}

// IsBinding reports whether s occupies its table slot unconditionally.
func (s ReservationStatus) IsBinding() bool {
	switch s {
	case ReservationConfirmed, ReservationSeated:
		return true
	case ReservationTentative, ReservationCompleted, ReservationCancelled,
		ReservationExpired, ReservationNoShow:
		return false
	default:
		return false
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	switch s {
	case ReservationTentative:
		return next == ReservationConfirmed || next == ReservationExpired || next == ReservationCancelled
	case ReservationConfirmed:
		return next == ReservationSeated || next == ReservationCancelled || next == ReservationNoShow
	case ReservationSeated:
		return next == ReservationCompleted
	case ReservationCompleted, ReservationCancelled, ReservationExpired, ReservationNoShow:
		return false
	default:
		return false
	}
}

// LineItemRequest is a client-submitted order line. Prices are never taken from it.
type LineItemRequest struct {
	MenuItemID          uint   `json:"menu_item_id" binding:"required"`
	Quantity            int    `json:"quantity" binding:"required"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

// PreOrder is the cart attached to a reservation, materialized once payment succeeds.
type PreOrder struct {
	Items    []LineItemRequest `json:"items"`
	TipCents int64             `json:"tip_cents"`
}

type Reservation struct {
	ID               string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	RestaurantID     uint              `gorm:"not null;index:idx_reservation_slot,priority:1" json:"restaurant_id"`
	TableID          *uint             `gorm:"index:idx_reservation_slot,priority:2" json:"table_id,omitempty"`
	CustomerName     string            `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerContact  string            `gorm:"type:varchar(255);not null" json:"customer_contact"`
	PartySize        int               `gorm:"not null" json:"party_size"`
	ReservationDate  string            `gorm:"type:varchar(10);not null;index" json:"reservation_date"`
	ReservationTime  string            `gorm:"type:varchar(5);not null" json:"reservation_time"`
	StartsAt         time.Time         `gorm:"not null;index:idx_reservation_slot,priority:3" json:"starts_at"`
	Status           ReservationStatus `gorm:"type:varchar(20);not null;default:'tentative';index" json:"status"`
	ExpiresAt        *time.Time        `gorm:"index" json:"expires_at,omitempty"`
	PaymentReference *string           `gorm:"type:varchar(100);index" json:"payment_reference,omitempty"`
	CustomerArrived  bool              `gorm:"not null;default:false" json:"customer_arrived"`
	PreOrder         *PreOrder         `gorm:"type:text;serializer:json" json:"pre_order,omitempty"`
	ConfirmedAt      *time.Time        `json:"confirmed_at,omitempty"`
	SeatedAt         *time.Time        `json:"seated_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}
