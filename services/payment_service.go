package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const maxConfirmAttempts = 3

// PaymentEvent is a processor notification. Delivery is at least once and
// possibly out of order.
type PaymentEvent struct {
	ReservationID    *string               `json:"reservation_id,omitempty"`
	PaymentReference string                `json:"payment_reference"`
	AmountCents      int64                 `json:"amount_cents"`
	Outcome          models.PaymentOutcome `json:"outcome"`
	// Order is the cart for payments that have neither a reservation nor a
	// pending order under the same reference.
	Order  *OrderSpec `json:"order,omitempty"`
	Source string     `json:"source,omitempty"`
}

// Disposition is what handling a payment event did.
type Disposition string

const (
	DispositionConfirmed        Disposition = "confirmed"
	DispositionAlreadyConfirmed Disposition = "already_confirmed"
	DispositionHoldExpired      Disposition = "hold_expired"
	DispositionSlotConflict     Disposition = "slot_conflict"
	DispositionHoldNotFound     Disposition = "hold_not_found"
	DispositionDeadHold         Disposition = "dead_hold"
	DispositionOrderPaid        Disposition = "order_paid"
	DispositionUnmatched        Disposition = "unmatched"
	DispositionOrderFailed      Disposition = "order_failed"
	DispositionIgnored          Disposition = "ignored"
	// DispositionRejected is a business error with no other outcome, such as
	// an unpriceable cart on a direct payment.
	DispositionRejected Disposition = "rejected"
	// DispositionError is an infrastructure failure; the event is redelivered.
	DispositionError Disposition = "error"
)

type PaymentResult struct {
	Disposition Disposition         `json:"disposition"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
	Order       *models.Order       `json:"order,omitempty"`
	// OrderCreated is false when the order already existed.
	OrderCreated bool `json:"order_created"`
	// DroppedItems are pre-order menu items left off the order because the
	// menu no longer serves them.
	DroppedItems []uint `json:"dropped_items,omitempty"`
}

// Idempotent reports whether the event had already been applied.
func (r *PaymentResult) Idempotent() bool {
	return r != nil && r.Disposition == DispositionAlreadyConfirmed
}

// PaymentHandler applies payment events to holds and orders. Every write is
// conditional, so duplicate or concurrent deliveries converge on one outcome.
type PaymentHandler struct {
	store     Store
	policies  *PolicyProvider
	expiry    *ExpirationPolicy
	conflicts *ConflictDetector
	orders    *OrderMaterializer
	notifier  Notifier
	metrics   *Metrics
}

// Handle processes one event. Business outcomes that the caller cannot act on
// are reported in the result; EXPIRED and CONFLICT are also returned as errors
// so synchronous callers can surface them. Any other error is an
// infrastructure failure and the event should be redelivered. Every event with
// a payment reference lands in the payment notice ledger.
func (h *PaymentHandler) Handle(ctx context.Context, ev PaymentEvent) (*PaymentResult, error) {
	ev.PaymentReference = strings.TrimSpace(ev.PaymentReference)
	if ev.PaymentReference == "" {
		return nil, validationError("payment reference is required")
	}
	if ev.ReservationID != nil && strings.TrimSpace(*ev.ReservationID) == "" {
		ev.ReservationID = nil
	}

	var (
		result *PaymentResult
		err    error
	)
	switch ev.Outcome {
	case models.OutcomeSucceeded:
		if ev.ReservationID != nil {
			result, err = h.confirmReservation(ctx, ev)
		} else {
			result, err = h.settleOrder(ctx, ev)
		}
	case models.OutcomeFailed:
		result, err = h.failOrder(ctx, ev)
	default:
		err = validationError("unknown payment outcome %q", ev.Outcome)
	}

	d := DispositionError
	switch {
	case result != nil:
		d = result.Disposition
	case KindOf(err) != "":
		d = DispositionRejected
		utils.InfoLogger.WithFields(logrus.Fields{
			"payment_reference": ev.PaymentReference,
			"code":              CodeOf(err),
		}).WithError(err).Warn("payment event rejected")
		h.anomaly(ev, d, map[string]interface{}{"reason": err.Error()})
	}
	h.metrics.paymentEvent(d)
	h.record(ctx, ev, d)
	return result, err
}

func (h *PaymentHandler) confirmReservation(ctx context.Context, ev PaymentEvent) (*PaymentResult, error) {
	log := utils.InfoLogger.WithFields(logrus.Fields{
		"reservation_id":    *ev.ReservationID,
		"payment_reference": ev.PaymentReference,
	})

	var (
		result  *PaymentResult
		err     error
		changed *TableStatusChange
	)
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		result, changed, err = h.tryConfirm(ctx, ev)
		if !errors.Is(err, ErrStaleWrite) {
			break
		}
		log.WithField("attempt", attempt).Warn("confirmation lost a concurrent write, retrying")
	}
	if err != nil && result == nil {
		return nil, fmt.Errorf("confirm reservation %s: %w", *ev.ReservationID, err)
	}

	switch result.Disposition {
	case DispositionConfirmed:
		log.Info("reservation confirmed")
		h.notifier.Notify(TopicReservationConfirmed, result.Reservation)
		if changed != nil {
			h.notifier.Notify(TopicTableStatus, changed)
		}
		if result.OrderCreated {
			h.notifier.Notify(TopicOrderCreated, result.Order)
		}
		if len(result.DroppedItems) > 0 {
			log.WithField("dropped_items", result.DroppedItems).Warn("pre-order items no longer served, left off the order")
			h.anomaly(ev, result.Disposition, map[string]interface{}{"dropped_items": result.DroppedItems})
		}
		h.checkAmount(ev, result.Order)
	case DispositionAlreadyConfirmed:
		log.Info("duplicate payment confirmation ignored")
	case DispositionHoldNotFound:
		log.Warn("payment for unknown reservation ignored")
	case DispositionHoldExpired, DispositionSlotConflict, DispositionDeadHold:
		log.WithField("disposition", result.Disposition).Warn("payment needs reconciliation")
		h.anomaly(ev, result.Disposition, nil)
	}
	return result, err
}

// tryConfirm runs one confirmation attempt. ErrStaleWrite means a concurrent
// writer changed the reservation or its table and the attempt must be repeated
// from a fresh read.
func (h *PaymentHandler) tryConfirm(ctx context.Context, ev PaymentEvent) (*PaymentResult, *TableStatusChange, error) {
	id := *ev.ReservationID
	now := h.expiry.Now()

	res, err := h.store.GetReservation(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return &PaymentResult{Disposition: DispositionHoldNotFound}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	switch res.Status {
	case models.ReservationConfirmed, models.ReservationSeated, models.ReservationCompleted:
		if res.PaymentReference != nil && *res.PaymentReference == ev.PaymentReference {
			result := &PaymentResult{Disposition: DispositionAlreadyConfirmed, Reservation: res}
			if order, err := h.store.GetOrderByPaymentReference(ctx, ev.PaymentReference); err == nil {
				result.Order = order
			}
			return result, nil, nil
		}
		// Confirmed by a different payment; this one paid for nothing.
		return &PaymentResult{Disposition: DispositionDeadHold, Reservation: res}, nil, nil
	case models.ReservationTentative:
		if h.expiry.IsExpired(res, now) {
			view, _ := h.expiry.Effective(res, now)
			return &PaymentResult{Disposition: DispositionHoldExpired, Reservation: view},
				nil, expiredError("reservation %s expired before payment %s was confirmed", id, ev.PaymentReference)
		}
	case models.ReservationCancelled, models.ReservationExpired, models.ReservationNoShow:
		return &PaymentResult{Disposition: DispositionDeadHold, Reservation: res}, nil, nil
	default:
		return nil, nil, fmt.Errorf("reservation %s has unknown status %q", id, res.Status)
	}

	policy, err := h.policies.Get(ctx, res.RestaurantID)
	if err != nil {
		return nil, nil, err
	}

	var (
		result   *PaymentResult
		changed  *TableStatusChange
		rejected error
	)
	err = h.store.InTx(ctx, func(tx Store) error {
		var table *models.Table
		if res.TableID != nil {
			t, err := tx.GetTable(ctx, res.RestaurantID, *res.TableID)
			if err != nil {
				return fmt.Errorf("load table: %w", err)
			}
			table = t
			conflict, err := h.conflicts.HasBindingConflict(ctx, tx, Slot{
				RestaurantID: res.RestaurantID,
				TableID:      *res.TableID,
				Start:        res.StartsAt,
				Duration:     policy.ReservationDuration,
				ExcludeID:    res.ID,
			}, now)
			if err != nil {
				return err
			}
			if conflict {
				result = &PaymentResult{Disposition: DispositionSlotConflict, Reservation: res}
				rejected = conflictError("table %d is already booked for reservation %s's slot", *res.TableID, res.ID)
				return nil
			}
		}

		ref := ev.PaymentReference
		ok, err := tx.TransitionReservation(ctx, res.ID,
			TransitionGuard{From: models.ReservationTentative, ValidAt: &now},
			ReservationPatch{
				Status:           models.ReservationConfirmed,
				PaymentReference: &ref,
				ConfirmedAt:      &now,
				ClearExpiresAt:   true,
			})
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleWrite
		}

		if table != nil {
			// Only a free table flips to reserved; the version bump still
			// serializes confirmations on the same table.
			status := table.Status
			if status == models.TableAvailable {
				status = models.TableReserved
			}
			ok, err := tx.UpdateTableStatus(ctx, table.ID, table.Version, status)
			if err != nil {
				return err
			}
			if !ok {
				return ErrStaleWrite
			}
			if status != table.Status {
				changed = &TableStatusChange{TableID: table.ID, Status: string(status)}
			}
		}

		spec, dropped, err := pruneUnservable(ctx, tx, preOrderSpec(res))
		if err != nil {
			return err
		}
		order, created, err := h.orders.materialize(ctx, tx, ref, spec, models.PaymentCompleted)
		if err != nil {
			return err
		}
		if err := completeOrderPayment(ctx, tx, order); err != nil {
			return err
		}

		confirmed, err := tx.GetReservation(ctx, res.ID)
		if err != nil {
			return err
		}
		result = &PaymentResult{
			Disposition:  DispositionConfirmed,
			Reservation:  confirmed,
			Order:        order,
			OrderCreated: created,
		}
		if created {
			result.DroppedItems = dropped
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, changed, rejected
}

// settleOrder handles a successful payment that is not tied to a reservation.
func (h *PaymentHandler) settleOrder(ctx context.Context, ev PaymentEvent) (*PaymentResult, error) {
	log := utils.InfoLogger.WithField("payment_reference", ev.PaymentReference)

	var (
		order   *models.Order
		created bool
		err     error
	)
	if ev.Order != nil {
		order, created, err = h.orders.materialize(ctx, h.store, ev.PaymentReference, *ev.Order, models.PaymentCompleted)
		if err != nil {
			return nil, err
		}
	} else {
		order, err = h.store.GetOrderByPaymentReference(ctx, ev.PaymentReference)
		if errors.Is(err, ErrRecordNotFound) {
			log.Warn("payment matches no order or reservation")
			h.anomaly(ev, DispositionUnmatched, nil)
			return &PaymentResult{Disposition: DispositionUnmatched}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("lookup order by payment reference: %w", err)
		}
	}

	if !created && order.PaymentStatus == models.PaymentCompleted {
		return &PaymentResult{Disposition: DispositionAlreadyConfirmed, Order: order}, nil
	}
	if err := completeOrderPayment(ctx, h.store, order); err != nil {
		return nil, err
	}

	log.WithField("order_id", order.ID).Info("order payment completed")
	if created {
		h.notifier.Notify(TopicOrderCreated, order)
	}
	h.checkAmount(ev, order)
	return &PaymentResult{Disposition: DispositionOrderPaid, Order: order, OrderCreated: created}, nil
}

// failOrder marks a pending order failed. Reservations are left alone so the
// customer can retry before the hold lapses, and completed orders stay completed.
func (h *PaymentHandler) failOrder(ctx context.Context, ev PaymentEvent) (*PaymentResult, error) {
	ok, err := h.store.TransitionOrderPayment(ctx, ev.PaymentReference,
		[]models.PaymentStatus{models.PaymentPending}, models.PaymentFailed)
	if err != nil {
		return nil, fmt.Errorf("mark order payment failed: %w", err)
	}
	if !ok {
		return &PaymentResult{Disposition: DispositionIgnored}, nil
	}
	utils.InfoLogger.WithField("payment_reference", ev.PaymentReference).Info("order payment failed")
	order, err := h.store.GetOrderByPaymentReference(ctx, ev.PaymentReference)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	return &PaymentResult{Disposition: DispositionOrderFailed, Order: order}, nil
}

// completeOrderPayment moves a pending or failed order to completed. A later
// success after a failed attempt on the same reference wins; completed is final.
func completeOrderPayment(ctx context.Context, st Store, order *models.Order) error {
	if order.PaymentStatus == models.PaymentCompleted || order.PaymentReference == nil {
		return nil
	}
	if _, err := st.TransitionOrderPayment(ctx, *order.PaymentReference,
		[]models.PaymentStatus{models.PaymentPending, models.PaymentFailed}, models.PaymentCompleted); err != nil {
		return fmt.Errorf("complete order payment: %w", err)
	}
	order.PaymentStatus = models.PaymentCompleted
	return nil
}

func (h *PaymentHandler) checkAmount(ev PaymentEvent, order *models.Order) {
	if order == nil || ev.AmountCents <= 0 || ev.AmountCents == order.TotalCents {
		return
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"payment_reference": ev.PaymentReference,
		"order_id":          order.ID,
		"paid_cents":        ev.AmountCents,
		"total_cents":       order.TotalCents,
	}).Warn("paid amount differs from order total")
}

// anomaly flags a payment that staff must reconcile by hand.
func (h *PaymentHandler) anomaly(ev PaymentEvent, d Disposition, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"payment_reference": ev.PaymentReference,
		"amount_cents":      ev.AmountCents,
		"disposition":       d,
	}
	if ev.ReservationID != nil {
		payload["reservation_id"] = *ev.ReservationID
	}
	for k, v := range extra {
		payload[k] = v
	}
	h.notifier.Notify(TopicPaymentAnomaly, payload)
}

func (h *PaymentHandler) record(ctx context.Context, ev PaymentEvent, d Disposition) {
	source := ev.Source
	if source == "" {
		source = "unknown"
	}
	notice := &models.PaymentNotice{
		PaymentReference: ev.PaymentReference,
		ReservationID:    ev.ReservationID,
		Outcome:          ev.Outcome,
		AmountCents:      ev.AmountCents,
		Source:           source,
		Disposition:      string(d),
		ReceivedAt:       h.expiry.Now(),
	}
	if err := h.store.RecordPaymentNotice(ctx, notice); err != nil {
		utils.ErrorLogger.WithField("payment_reference", ev.PaymentReference).
			WithError(err).Error("failed to record payment notice")
	}
}
