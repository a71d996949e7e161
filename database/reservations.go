package database

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"gorm.io/gorm"
)

func (s *GormStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) ListTableReservations(ctx context.Context, restaurantID, tableID uint, from, to time.Time, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND table_id = ?", restaurantID, tableID).
		Where("starts_at >= ? AND starts_at < ?", from, to).
		Where("status IN ?", statuses).
		Order("starts_at").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListReservationsByDate(ctx context.Context, restaurantID uint, date string) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND reservation_date = ?", restaurantID, date).
		Order("starts_at").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) CountBindingReservations(ctx context.Context, tableID uint, excludeID string, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("table_id = ? AND id <> ?", tableID, excludeID).
		Where("status IN ?", []models.ReservationStatus{models.ReservationConfirmed, models.ReservationSeated}).
		Where("starts_at > ?", since).
		Count(&n).Error
	return n, err
}

func (s *GormStore) TransitionReservation(ctx context.Context, id string, guard services.TransitionGuard, patch services.ReservationPatch) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, guard.From)
	if guard.ValidAt != nil {
		q = q.Where("expires_at > ?", *guard.ValidAt)
	}
	if guard.ExpiredAt != nil {
		q = q.Where("(expires_at IS NULL OR expires_at <= ?)", *guard.ExpiredAt)
	}

	updates := map[string]interface{}{"status": patch.Status}
	if patch.PaymentReference != nil {
		updates["payment_reference"] = *patch.PaymentReference
	}
	if patch.ConfirmedAt != nil {
		updates["confirmed_at"] = *patch.ConfirmedAt
	}
	if patch.SeatedAt != nil {
		updates["seated_at"] = *patch.SeatedAt
	}
	if patch.CancelledAt != nil {
		updates["cancelled_at"] = *patch.CancelledAt
	}
	if patch.CustomerArrived != nil {
		updates["customer_arrived"] = *patch.CustomerArrived
	}
	if patch.ClearExpiresAt {
		updates["expires_at"] = gorm.Expr("NULL")
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpireStaleHolds rewrites up to limit tentative rows whose expires_at has passed.
func (s *GormStore) ExpireStaleHolds(ctx context.Context, now time.Time, limit int) (int64, error) {
	db := s.db.WithContext(ctx)

	var ids []string
	err := db.Model(&models.Reservation{}).
		Where("status = ? AND expires_at <= ?", models.ReservationTentative, now).
		Order("expires_at").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	res := db.Model(&models.Reservation{}).
		Where("id IN ? AND status = ? AND expires_at <= ?", ids, models.ReservationTentative, now).
		Update("status", models.ReservationExpired)
	return res.RowsAffected, res.Error
}
