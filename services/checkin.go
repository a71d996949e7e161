package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// CheckInHandler seats arriving guests and closes finished visits.
type CheckInHandler struct {
	store    Store
	policies *PolicyProvider
	expiry   *ExpirationPolicy
	notifier Notifier
	metrics  *Metrics
}

// CheckIn seats a confirmed reservation on its own date. Checking in an
// already seated reservation returns it unchanged.
func (h *CheckInHandler) CheckIn(ctx context.Context, id string) (*models.Reservation, error) {
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		res, err := h.tryCheckIn(ctx, id)
		if errors.Is(err, ErrStaleWrite) {
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("check in reservation %s: %w", id, ErrStaleWrite)
}

func (h *CheckInHandler) tryCheckIn(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := h.expiry.Now()
	view, _ := h.expiry.Effective(res, now)
	switch view.Status {
	case models.ReservationSeated:
		return view, nil
	case models.ReservationConfirmed:
	default:
		return nil, policyDenied(CodeInvalidState, "reservation is %s; only confirmed reservations can be checked in", view.Status)
	}

	policy, err := h.policies.Get(ctx, res.RestaurantID)
	if err != nil {
		return nil, err
	}
	today := now.In(policy.Location()).Format(dateLayout)
	if res.ReservationDate != today {
		return nil, policyDenied(CodeInvalidState, "reservation is for %s, not today (%s)", res.ReservationDate, today)
	}

	arrived := true
	var (
		seated  *models.Reservation
		changed *TableStatusChange
	)
	err = h.store.InTx(ctx, func(tx Store) error {
		ok, err := tx.TransitionReservation(ctx, res.ID,
			TransitionGuard{From: models.ReservationConfirmed},
			ReservationPatch{Status: models.ReservationSeated, SeatedAt: &now, CustomerArrived: &arrived})
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleWrite
		}
		if res.TableID != nil {
			changed, err = setTableStatus(ctx, tx, res, models.TableOccupied)
			if err != nil {
				return err
			}
		}
		seated, err = tx.GetReservation(ctx, res.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrStaleWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("check in reservation: %w", err)
	}

	h.metrics.checkedIn()
	utils.InfoLogger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"table_id":       res.TableID,
	}).Info("guest checked in")
	h.notifier.Notify(TopicGuestArrived, GuestArrival{
		TableID:       res.TableID,
		ReservationID: res.ID,
		PartySize:     res.PartySize,
	})
	if changed != nil {
		h.notifier.Notify(TopicTableStatus, changed)
	}
	return seated, nil
}

// Complete closes a seated visit. Its table goes back to reserved when a later
// booking still holds it, otherwise to available.
func (h *CheckInHandler) Complete(ctx context.Context, id string) (*models.Reservation, error) {
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		res, err := h.tryComplete(ctx, id)
		if errors.Is(err, ErrStaleWrite) {
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("complete reservation %s: %w", id, ErrStaleWrite)
}

func (h *CheckInHandler) tryComplete(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == models.ReservationCompleted {
		return res, nil
	}
	if !res.Status.CanTransition(models.ReservationCompleted) {
		return nil, policyDenied(CodeInvalidState, "reservation is %s; only seated reservations can be completed", res.Status)
	}

	policy, err := h.policies.Get(ctx, res.RestaurantID)
	if err != nil {
		return nil, err
	}
	now := h.expiry.Now()

	var (
		done    *models.Reservation
		changed *TableStatusChange
	)
	err = h.store.InTx(ctx, func(tx Store) error {
		ok, err := tx.TransitionReservation(ctx, res.ID,
			TransitionGuard{From: models.ReservationSeated},
			ReservationPatch{Status: models.ReservationCompleted})
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleWrite
		}
		if res.TableID != nil {
			next := models.TableAvailable
			booked, err := stillBooked(ctx, tx, *res.TableID, res.ID, policy, now)
			if err != nil {
				return err
			}
			if booked {
				next = models.TableReserved
			}
			changed, err = setTableStatus(ctx, tx, res, next)
			if err != nil {
				return err
			}
		}
		done, err = tx.GetReservation(ctx, res.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrStaleWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("complete reservation: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"table_id":       res.TableID,
	}).Info("visit completed")
	h.notifier.Notify(TopicReservationCompleted, done)
	if changed != nil {
		h.notifier.Notify(TopicTableStatus, changed)
	}
	return done, nil
}

func (h *CheckInHandler) load(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := h.store.GetReservation(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFoundError(CodeReservationNotFound, "reservation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	return res, nil
}

func setTableStatus(ctx context.Context, tx Store, res *models.Reservation, status models.TableStatus) (*TableStatusChange, error) {
	table, err := tx.GetTable(ctx, res.RestaurantID, *res.TableID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if table.Status == status {
		return nil, nil
	}
	ok, err := tx.UpdateTableStatus(ctx, table.ID, table.Version, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleWrite
	}
	return &TableStatusChange{TableID: table.ID, Status: string(status)}, nil
}
