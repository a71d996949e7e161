package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// CancelDecision explains whether a cancellation is allowed.
type CancelDecision struct {
	Allowed    bool   `json:"allowed"`
	ReasonCode string `json:"reason_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// CancellationEnforcer applies the restaurant's cancellation window.
type CancellationEnforcer struct {
	store    Store
	policies *PolicyProvider
	expiry   *ExpirationPolicy
	notifier Notifier
	metrics  *Metrics
}

// CanCancel decides on r as seen at now. Tentative holds are always
// cancellable; confirmed reservations only while at least the cancellation
// window remains before the start time.
func (e *CancellationEnforcer) CanCancel(r *models.Reservation, policy Policy, now time.Time) CancelDecision {
	view, _ := e.expiry.Effective(r, now)
	switch view.Status {
	case models.ReservationTentative:
		return CancelDecision{Allowed: true}
	case models.ReservationConfirmed:
		if view.StartsAt.Sub(now) < policy.CancellationWindow {
			return CancelDecision{
				ReasonCode: CodeCancellationWindowPassed,
				Reason: fmt.Sprintf("reservations can only be cancelled up to %s before the reservation time",
					formatWindow(policy.CancellationWindow)),
			}
		}
		return CancelDecision{Allowed: true}
	case models.ReservationSeated, models.ReservationCompleted, models.ReservationCancelled,
		models.ReservationExpired, models.ReservationNoShow:
		return CancelDecision{
			ReasonCode: CodeInvalidReservationStatus,
			Reason:     fmt.Sprintf("reservation is %s and can no longer be cancelled", view.Status),
		}
	default:
		return CancelDecision{
			ReasonCode: CodeInvalidReservationStatus,
			Reason:     fmt.Sprintf("reservation has unknown status %q", view.Status),
		}
	}
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// Cancel cancels reservation id when policy allows, releasing its table when no
// other booking holds it.
func (e *CancellationEnforcer) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		res, err := e.tryCancel(ctx, id)
		if errors.Is(err, ErrStaleWrite) {
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("cancel reservation %s: %w", id, ErrStaleWrite)
}

func (e *CancellationEnforcer) tryCancel(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := e.store.GetReservation(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFoundError(CodeReservationNotFound, "reservation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}

	policy, err := e.policies.Get(ctx, res.RestaurantID)
	if err != nil {
		return nil, err
	}

	now := e.expiry.Now()
	decision := e.CanCancel(res, policy, now)
	if !decision.Allowed {
		e.metrics.cancellation(decision.ReasonCode)
		return nil, policyDenied(decision.ReasonCode, "%s", decision.Reason)
	}

	guard := TransitionGuard{From: res.Status}
	if res.Status == models.ReservationTentative {
		guard.ValidAt = &now
	}

	var (
		cancelled *models.Reservation
		released  *TableStatusChange
	)
	err = e.store.InTx(ctx, func(tx Store) error {
		ok, err := tx.TransitionReservation(ctx, res.ID, guard, ReservationPatch{
			Status:      models.ReservationCancelled,
			CancelledAt: &now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleWrite
		}

		if res.Status == models.ReservationConfirmed && res.TableID != nil {
			released, err = releaseTable(ctx, tx, res, policy, now)
			if err != nil {
				return err
			}
		}

		cancelled, err = tx.GetReservation(ctx, res.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrStaleWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	e.metrics.cancellation("cancelled")
	utils.InfoLogger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"previous":       res.Status,
	}).Info("reservation cancelled")
	e.notifier.Notify(TopicReservationCancelled, cancelled)
	if released != nil {
		e.notifier.Notify(TopicTableStatus, released)
	}
	return cancelled, nil
}

// releaseTable frees a reserved table unless another confirmed or seated
// booking still needs it.
func releaseTable(ctx context.Context, tx Store, res *models.Reservation, policy Policy, now time.Time) (*TableStatusChange, error) {
	table, err := tx.GetTable(ctx, res.RestaurantID, *res.TableID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableReserved {
		return nil, nil
	}

	booked, err := stillBooked(ctx, tx, table.ID, res.ID, policy, now)
	if err != nil || booked {
		return nil, err
	}

	ok, err := tx.UpdateTableStatus(ctx, table.ID, table.Version, models.TableAvailable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleWrite
	}
	return &TableStatusChange{TableID: table.ID, Status: string(models.TableAvailable)}, nil
}

// stillBooked reports whether a confirmed or seated reservation other than
// excludeID holds the table from now on.
func stillBooked(ctx context.Context, tx Store, tableID uint, excludeID string, policy Policy, now time.Time) (bool, error) {
	others, err := tx.CountBindingReservations(ctx, tableID, excludeID, now.Add(-policy.ReservationDuration))
	if err != nil {
		return false, err
	}
	return others > 0, nil
}
