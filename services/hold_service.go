package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	maxPartySize   = 50
	expiryWriteTTL = 5 * time.Second
)

// HoldRequest is the input of CreateHold.
type HoldRequest struct {
	RestaurantID    uint
	TableID         *uint
	PartySize       int
	Date            string
	Time            string
	CustomerName    string
	CustomerContact string
	PreOrder        *models.PreOrder
}

// HoldManager creates and reads tentative holds.
type HoldManager struct {
	store      Store
	policies   *PolicyProvider
	expiry     *ExpirationPolicy
	conflicts  *ConflictDetector
	notifier   Notifier
	metrics    *Metrics
	background func(func())
}

// CreateHold validates the request and stores a tentative hold. Overlapping
// tentative holds are allowed; the slot is decided at confirmation. When the
// restaurant runs strict hold conflicts and the request names a table, an
// overlapping confirmed or seated reservation rejects the hold immediately.
func (m *HoldManager) CreateHold(ctx context.Context, req HoldRequest) (*models.Reservation, error) {
	if err := validateHoldRequest(req); err != nil {
		return nil, err
	}

	policy, err := m.policies.Get(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	startsAt, err := time.ParseInLocation(dateLayout+" "+timeLayout, req.Date+" "+req.Time, policy.Location())
	if err != nil {
		return nil, validationError("invalid reservation date or time")
	}
	startsAt = startsAt.UTC()

	now := m.expiry.Now()
	if !startsAt.After(now) {
		return nil, validationError("reservation time must be in the future")
	}

	if req.TableID != nil {
		table, err := m.store.GetTable(ctx, req.RestaurantID, *req.TableID)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFoundError(CodeTableNotFound, "table %d not found", *req.TableID)
		}
		if err != nil {
			return nil, fmt.Errorf("load table: %w", err)
		}
		if table.Status == models.TableUnavailable {
			return nil, validationError("table %s is unavailable", table.TableNumber)
		}
		if table.Capacity > 0 && req.PartySize > table.Capacity {
			return nil, validationError("table %s seats at most %d guests", table.TableNumber, table.Capacity)
		}

		if policy.StrictHoldConflicts {
			conflict, err := m.conflicts.HasBindingConflict(ctx, m.store, Slot{
				RestaurantID: req.RestaurantID,
				TableID:      *req.TableID,
				Start:        startsAt,
				Duration:     policy.ReservationDuration,
			}, now)
			if err != nil {
				return nil, err
			}
			if conflict {
				return nil, conflictError("table %s is already booked at %s %s", table.TableNumber, req.Date, req.Time)
			}
		}
	}

	if req.PreOrder != nil {
		if err := m.checkPreOrder(ctx, req.RestaurantID, req.PreOrder); err != nil {
			return nil, err
		}
	}

	expiresAt := m.expiry.ExpiresAt(now, policy.HoldTTL)
	res := &models.Reservation{
		ID:              uuid.NewString(),
		RestaurantID:    req.RestaurantID,
		TableID:         req.TableID,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerContact: strings.TrimSpace(req.CustomerContact),
		PartySize:       req.PartySize,
		ReservationDate: req.Date,
		ReservationTime: req.Time,
		StartsAt:        startsAt,
		Status:          models.ReservationTentative,
		ExpiresAt:       &expiresAt,
		PreOrder:        req.PreOrder,
	}
	if err := m.store.CreateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	m.metrics.holdCreated()
	utils.InfoLogger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"restaurant_id":  res.RestaurantID,
		"starts_at":      res.StartsAt,
		"expires_at":     expiresAt,
	}).Info("tentative hold created")
	m.notifier.Notify(TopicReservationHeld, res)
	return res, nil
}

func validateHoldRequest(req HoldRequest) error {
	switch {
	case req.RestaurantID == 0:
		return validationError("restaurant_id is required")
	case req.PartySize <= 0:
		return validationError("party size must be greater than zero")
	case req.PartySize > maxPartySize:
		return validationError("party size must be at most %d", maxPartySize)
	case strings.TrimSpace(req.CustomerName) == "":
		return validationError("customer name is required")
	case strings.TrimSpace(req.CustomerContact) == "":
		return validationError("customer contact is required")
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return validationError("date must be formatted as YYYY-MM-DD")
	}
	if _, err := time.Parse(timeLayout, req.Time); err != nil {
		return validationError("time must be formatted as HH:MM")
	}
	if req.PreOrder != nil {
		if req.PreOrder.TipCents < 0 {
			return validationError("tip must not be negative")
		}
		for _, item := range req.PreOrder.Items {
			if item.Quantity <= 0 || item.Quantity > maxLineQuantity {
				return validationError("quantity for menu item %d must be between 1 and %d", item.MenuItemID, maxLineQuantity)
			}
		}
	}
	return nil
}

// checkPreOrder rejects pre-orders naming menu items the restaurant does not
// currently serve, so payment never has to price an unknown line.
func (m *HoldManager) checkPreOrder(ctx context.Context, restaurantID uint, pre *models.PreOrder) error {
	if len(pre.Items) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(pre.Items))
	for _, item := range pre.Items {
		ids = append(ids, item.MenuItemID)
	}
	menu, err := m.store.GetMenuItems(ctx, restaurantID, ids)
	if err != nil {
		return fmt.Errorf("load menu items: %w", err)
	}
	for _, item := range pre.Items {
		if mi, ok := menu[item.MenuItemID]; !ok || !mi.Available {
			return menuItemUnavailable(item.MenuItemID)
		}
	}
	return nil
}

// GetHold returns the reservation with logical expiration applied. A lapsed
// tentative row is reported as expired and rewritten in the background.
func (m *HoldManager) GetHold(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := m.store.GetReservation(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFoundError(CodeReservationNotFound, "reservation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	return m.view(res, m.expiry.Now()), nil
}

// ListHolds returns a restaurant's reservations for a date, with logical
// expiration applied to each row.
func (m *HoldManager) ListHolds(ctx context.Context, restaurantID uint, date string) ([]models.Reservation, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, validationError("date must be formatted as YYYY-MM-DD")
	}
	rows, err := m.store.ListReservationsByDate(ctx, restaurantID, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	now := m.expiry.Now()
	out := make([]models.Reservation, 0, len(rows))
	for i := range rows {
		out = append(out, *m.view(&rows[i], now))
	}
	return out, nil
}

func (m *HoldManager) view(res *models.Reservation, now time.Time) *models.Reservation {
	view, lapsed := m.expiry.Effective(res, now)
	if lapsed {
		m.metrics.lazyExpired()
		id := res.ID
		m.background(func() { m.persistExpiry(id, now) })
	}
	return view
}

func (m *HoldManager) persistExpiry(id string, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), expiryWriteTTL)
	defer cancel()

	ok, err := m.store.TransitionReservation(ctx, id,
		TransitionGuard{From: models.ReservationTentative, ExpiredAt: &now},
		ReservationPatch{Status: models.ReservationExpired})
	if err != nil {
		utils.ErrorLogger.WithField("reservation_id", id).WithError(err).Error("failed to persist hold expiry")
		return
	}
	if ok {
		utils.InfoLogger.WithField("reservation_id", id).Debug("hold expiry persisted")
	}
}
