package models

import "time"

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypePreOrder OrderType = "pre_order"
	OrderTypeTakeout  OrderType = "takeout"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypePreOrder, OrderTypeTakeout:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type Order struct {
	ID               string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	PaymentReference *string       `gorm:"type:varchar(100);uniqueIndex" json:"payment_reference,omitempty"`
	ReservationID    *string       `gorm:"type:varchar(36);index" json:"reservation_id,omitempty"`
	RestaurantID     uint          `gorm:"not null;index" json:"restaurant_id"`
	TableID          *uint         `json:"table_id,omitempty"`
	Type             OrderType     `gorm:"type:varchar(20);not null" json:"type"`
	SubtotalCents    int64         `gorm:"not null;default:0" json:"subtotal_cents"`
	TipCents         int64         `gorm:"not null;default:0" json:"tip_cents"`
	TotalCents       int64         `gorm:"not null;default:0" json:"total_cents"`
	PaymentStatus    PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	Items            []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`
}
