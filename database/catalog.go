package database

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
)

func (s *GormStore) GetTable(ctx context.Context, restaurantID, tableID uint) (*models.Table, error) {
	var t models.Table
	err := s.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormStore) UpdateTableStatus(ctx context.Context, tableID, version uint, status models.TableStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND version = ?", tableID, version).
		Updates(map[string]interface{}{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) GetMenuItems(ctx context.Context, restaurantID uint, ids []uint) (map[uint]models.MenuItem, error) {
	items := make(map[uint]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	var rows []models.MenuItem
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		items[row.ID] = row
	}
	return items, nil
}

func (s *GormStore) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}
