package models

import "time"

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableUnavailable TableStatus = "unavailable"
)

// Table is owned by seating management. Version increases on every status write
// so concurrent writers can detect each other.
type Table struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RestaurantID uint        `gorm:"not null;index" json:"restaurant_id"`
	TableNumber  string      `gorm:"type:varchar(50);not null" json:"table_number"`
	Capacity     int         `gorm:"not null;default:0" json:"capacity"`
	Status       TableStatus `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	Version      uint        `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}
