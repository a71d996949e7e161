package services

import (
	"context"
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
)

var (
	ErrRecordNotFound            = errors.New("record not found")
	ErrDuplicatePaymentReference = errors.New("duplicate payment reference")
	// ErrStaleWrite means a conditional write lost a race and the caller may retry.
	ErrStaleWrite = errors.New("stale write")
)

// TransitionGuard is the WHERE clause of a conditional status write.
type TransitionGuard struct {
	From models.ReservationStatus
	// ValidAt requires expires_at > ValidAt.
	ValidAt *time.Time
	// ExpiredAt requires expires_at <= ExpiredAt.
	ExpiredAt *time.Time
}

// ReservationPatch lists the columns written alongside the new status.
type ReservationPatch struct {
	Status           models.ReservationStatus
	PaymentReference *string
	ConfirmedAt      *time.Time
	SeatedAt         *time.Time
	CancelledAt      *time.Time
	CustomerArrived  *bool
	ClearExpiresAt   bool
}

type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	// ListTableReservations returns rows for the table starting in [from, to)
	// whose status is one of statuses.
	ListTableReservations(ctx context.Context, restaurantID, tableID uint, from, to time.Time, statuses []models.ReservationStatus) ([]models.Reservation, error)
	ListReservationsByDate(ctx context.Context, restaurantID uint, date string) ([]models.Reservation, error)
	CountBindingReservations(ctx context.Context, tableID uint, excludeID string, since time.Time) (int64, error)
	// TransitionReservation applies patch only when guard still holds. It
	// reports whether a row was updated.
	TransitionReservation(ctx context.Context, id string, guard TransitionGuard, patch ReservationPatch) (bool, error)
	ExpireStaleHolds(ctx context.Context, now time.Time, limit int) (int64, error)
}

type OrderStore interface {
	// CreateOrder returns ErrDuplicatePaymentReference when the reference is taken.
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error)
	TransitionOrderPayment(ctx context.Context, ref string, from []models.PaymentStatus, to models.PaymentStatus) (bool, error)
}

type TableStore interface {
	GetTable(ctx context.Context, restaurantID, tableID uint) (*models.Table, error)
	// UpdateTableStatus writes status and bumps the version when the row is still at version.
	UpdateTableStatus(ctx context.Context, tableID, version uint, status models.TableStatus) (bool, error)
}

type CatalogStore interface {
	GetMenuItems(ctx context.Context, restaurantID uint, ids []uint) (map[uint]models.MenuItem, error)
}

type RestaurantStore interface {
	GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error)
}

type PaymentLog interface {
	RecordPaymentNotice(ctx context.Context, n *models.PaymentNotice) error
}

// Store is the persistent store. InTx runs fn against a transactional view;
// fn's error rolls the transaction back.
type Store interface {
	ReservationStore
	OrderStore
	TableStore
	CatalogStore
	RestaurantStore
	PaymentLog
	InTx(ctx context.Context, fn func(tx Store) error) error
}
