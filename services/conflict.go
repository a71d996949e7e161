package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
)

// Slot is a candidate table booking window.
type Slot struct {
	RestaurantID uint
	TableID      uint
	Start        time.Time
	Duration     time.Duration
	// ExcludeID skips the reservation being evaluated.
	ExcludeID string
}

func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

func (s Slot) overlaps(start time.Time) bool {
	end := start.Add(s.Duration)
	return start.Before(s.End()) && end.After(s.Start)
}

// ConflictDetector finds reservations overlapping a slot on the same table.
type ConflictDetector struct {
	expiry *ExpirationPolicy
}

func NewConflictDetector(expiry *ExpirationPolicy) *ConflictDetector {
	return &ConflictDetector{expiry: expiry}
}

// HasConflict reports whether a confirmed or seated reservation, or a tentative
// hold that has not yet expired, overlaps slot. Expired holds never block.
func (d *ConflictDetector) HasConflict(ctx context.Context, store ReservationStore, slot Slot, now time.Time) (bool, error) {
	return d.find(ctx, store, slot, now, true)
}

// HasBindingConflict only considers confirmed and seated reservations. It is the
// check run at confirmation time.
func (d *ConflictDetector) HasBindingConflict(ctx context.Context, store ReservationStore, slot Slot, now time.Time) (bool, error) {
	return d.find(ctx, store, slot, now, false)
}

func (d *ConflictDetector) find(ctx context.Context, store ReservationStore, slot Slot, now time.Time, includeTentative bool) (bool, error) {
	if slot.Duration <= 0 {
		slot.Duration = models.DefaultReservationDurationMinutes * time.Minute
	}
	statuses := []models.ReservationStatus{models.ReservationConfirmed, models.ReservationSeated}
	if includeTentative {
		statuses = append(statuses, models.ReservationTentative)
	}

	rows, err := store.ListTableReservations(ctx, slot.RestaurantID, slot.TableID,
		slot.Start.Add(-slot.Duration), slot.End(), statuses)
	if err != nil {
		return false, fmt.Errorf("list table reservations: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		if row.ID == slot.ExcludeID || !slot.overlaps(row.StartsAt) {
			continue
		}
		if row.Status.IsBinding() {
			return true, nil
		}
		if includeTentative && !d.expiry.IsExpired(row, now) {
			return true, nil
		}
	}
	return false, nil
}
