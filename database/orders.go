package database

import (
	"context"
	"errors"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"gorm.io/gorm"
)

func (s *GormStore) CreateOrder(ctx context.Context, o *models.Order) error {
	db := s.db.WithContext(ctx)
	err := db.Create(o).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.ErrDuplicatePaymentReference
	}
	// Drivers without error translation: check whether the reference now exists.
	if o.PaymentReference != nil {
		var n int64
		if cerr := db.Model(&models.Order{}).Where("payment_reference = ?", *o.PaymentReference).Count(&n).Error; cerr == nil && n > 0 {
			return services.ErrDuplicatePaymentReference
		}
	}
	return err
}

func (s *GormStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("payment_reference = ?", ref).
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) TransitionOrderPayment(ctx context.Context, ref string, from []models.PaymentStatus, to models.PaymentStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_reference = ? AND payment_status IN ?", ref, from).
		Update("payment_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) RecordPaymentNotice(ctx context.Context, n *models.PaymentNotice) error {
	return s.db.WithContext(ctx).Create(n).Error
}
