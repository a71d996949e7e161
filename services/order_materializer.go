package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const maxLineQuantity = 100

// OrderSpec is a request-scoped cart. Prices come from the menu, never from here.
type OrderSpec struct {
	RestaurantID  uint                     `json:"restaurant_id"`
	TableID       *uint                    `json:"table_id,omitempty"`
	ReservationID *string                  `json:"reservation_id,omitempty"`
	Type          models.OrderType         `json:"type"`
	Items         []models.LineItemRequest `json:"items"`
	TipCents      int64                    `json:"tip_cents"`
}

// OrderMaterializer creates orders idempotently by payment reference.
type OrderMaterializer struct {
	store   Store
	metrics *Metrics
}

// Materialize creates the order for ref, or returns the order already stored
// under ref unchanged. created is false on the idempotent path. An empty ref
// creates an unpaid order with no idempotency key.
func (m *OrderMaterializer) Materialize(ctx context.Context, ref string, spec OrderSpec) (*models.Order, bool, error) {
	return m.materialize(ctx, m.store, ref, spec, models.PaymentPending)
}

func (m *OrderMaterializer) materialize(ctx context.Context, st Store, ref string, spec OrderSpec, status models.PaymentStatus) (*models.Order, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		existing, err := st.GetOrderByPaymentReference(ctx, ref)
		if err == nil {
			m.metrics.orderMaterialized(false)
			return existing, false, nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, false, fmt.Errorf("lookup order by payment reference: %w", err)
		}
	}

	order, err := m.build(ctx, st, spec)
	if err != nil {
		return nil, false, err
	}
	order.PaymentStatus = status
	if ref != "" {
		order.PaymentReference = &ref
	}

	if err := st.CreateOrder(ctx, order); err != nil {
		if !errors.Is(err, ErrDuplicatePaymentReference) {
			return nil, false, fmt.Errorf("create order: %w", err)
		}
		// Lost the insert race; converge on the stored order.
		existing, lerr := st.GetOrderByPaymentReference(ctx, ref)
		if lerr != nil {
			return nil, false, fmt.Errorf("load order after duplicate insert: %w", lerr)
		}
		m.metrics.orderMaterialized(false)
		return existing, false, nil
	}

	m.metrics.orderMaterialized(true)
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":          order.ID,
		"payment_reference": ref,
		"total_cents":       order.TotalCents,
	}).Info("order materialized")
	return order, true, nil
}

func (m *OrderMaterializer) build(ctx context.Context, st Store, spec OrderSpec) (*models.Order, error) {
	if spec.RestaurantID == 0 {
		return nil, validationError("restaurant_id is required")
	}
	if spec.Type == "" {
		spec.Type = models.OrderTypeDineIn
	}
	if !spec.Type.Valid() {
		return nil, validationError("unknown order type %q", spec.Type)
	}
	if spec.TipCents < 0 {
		return nil, validationError("tip must not be negative")
	}
	// A reservation deposit may carry no items.
	if len(spec.Items) == 0 && spec.ReservationID == nil {
		return nil, validationError("order must contain at least one item")
	}

	ids := make([]uint, 0, len(spec.Items))
	seen := make(map[uint]bool, len(spec.Items))
	for _, item := range spec.Items {
		if item.Quantity <= 0 || item.Quantity > maxLineQuantity {
			return nil, validationError("quantity for menu item %d must be between 1 and %d", item.MenuItemID, maxLineQuantity)
		}
		if !seen[item.MenuItemID] {
			seen[item.MenuItemID] = true
			ids = append(ids, item.MenuItemID)
		}
	}

	menu, err := st.GetMenuItems(ctx, spec.RestaurantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		ReservationID: spec.ReservationID,
		RestaurantID:  spec.RestaurantID,
		TableID:       spec.TableID,
		Type:          spec.Type,
		TipCents:      spec.TipCents,
	}
	for _, item := range spec.Items {
		mi, ok := menu[item.MenuItemID]
		if !ok || !mi.Available {
			return nil, menuItemUnavailable(item.MenuItemID)
		}
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID:          mi.ID,
			Name:                mi.Name,
			Quantity:            item.Quantity,
			UnitPriceCents:      mi.PriceCents,
			SpecialInstructions: strings.TrimSpace(item.SpecialInstructions),
		})
		order.SubtotalCents += mi.PriceCents * int64(item.Quantity)
	}
	order.TotalCents = order.SubtotalCents + order.TipCents
	return order, nil
}

// pruneUnservable drops pre-order lines the menu can no longer price and
// returns the menu item ids it dropped. A paid reservation is confirmed with
// whatever remains.
func pruneUnservable(ctx context.Context, st Store, spec OrderSpec) (OrderSpec, []uint, error) {
	if spec.TipCents < 0 {
		spec.TipCents = 0
	}
	if len(spec.Items) == 0 {
		return spec, nil, nil
	}
	ids := make([]uint, 0, len(spec.Items))
	for _, item := range spec.Items {
		ids = append(ids, item.MenuItemID)
	}
	menu, err := st.GetMenuItems(ctx, spec.RestaurantID, ids)
	if err != nil {
		return spec, nil, fmt.Errorf("load menu items: %w", err)
	}

	kept := make([]models.LineItemRequest, 0, len(spec.Items))
	var dropped []uint
	for _, item := range spec.Items {
		mi, ok := menu[item.MenuItemID]
		if !ok || !mi.Available || item.Quantity <= 0 || item.Quantity > maxLineQuantity {
			dropped = append(dropped, item.MenuItemID)
			continue
		}
		kept = append(kept, item)
	}
	spec.Items = kept
	return spec, dropped, nil
}

func preOrderSpec(res *models.Reservation) OrderSpec {
	spec := OrderSpec{
		RestaurantID:  res.RestaurantID,
		TableID:       res.TableID,
		ReservationID: &res.ID,
		Type:          models.OrderTypePreOrder,
	}
	if res.PreOrder != nil {
		spec.Items = res.PreOrder.Items
		spec.TipCents = res.PreOrder.TipCents
	}
	return spec
}

// GetOrder loads an order by id.
func (m *OrderMaterializer) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := m.store.GetOrder(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFoundError(CodeOrderNotFound, "order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

// FindByPaymentReference is the recovery lookup for clients that never saw
// the webhook which created their order.
func (m *OrderMaterializer) FindByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, validationError("payment reference is required")
	}
	order, err := m.store.GetOrderByPaymentReference(ctx, ref)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFoundError(CodeOrderNotFound, "no order for payment reference %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load order by payment reference: %w", err)
	}
	return order, nil
}
