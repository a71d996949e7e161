package models

import "time"

// OrderItem snapshots the menu item's name and price at materialization time.
type OrderItem struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	OrderID             string    `gorm:"type:varchar(36);not null;index" json:"order_id"`
	MenuItemID          uint      `gorm:"not null" json:"menu_item_id"`
	Name                string    `gorm:"type:varchar(255);not null" json:"name"`
	Quantity            int       `gorm:"not null" json:"quantity"`
	UnitPriceCents      int64     `gorm:"not null" json:"unit_price_cents"`
	SpecialInstructions string    `gorm:"type:text" json:"special_instructions,omitempty"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
}
