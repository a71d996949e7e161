package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// Policy is a restaurant's reservation configuration with defaults applied.
type Policy struct {
	RestaurantID        uint          `json:"restaurant_id"`
	Timezone            string        `json:"timezone"`
	HoldTTL             time.Duration `json:"hold_ttl"`
	ReservationDuration time.Duration `json:"reservation_duration"`
	CancellationWindow  time.Duration `json:"cancellation_window"`
	StrictHoldConflicts bool          `json:"strict_hold_conflicts"`
}

func PolicyFromRestaurant(r *models.Restaurant) Policy {
	p := Policy{
		RestaurantID:        r.ID,
		Timezone:            r.Timezone,
		HoldTTL:             time.Duration(r.HoldTTLMinutes) * time.Minute,
		ReservationDuration: time.Duration(r.ReservationDurationMinutes) * time.Minute,
		CancellationWindow:  time.Duration(r.CancellationWindowHours) * time.Hour,
		StrictHoldConflicts: r.StrictHoldConflicts,
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if p.HoldTTL <= 0 {
		p.HoldTTL = models.DefaultHoldTTLMinutes * time.Minute
	}
	if p.ReservationDuration <= 0 {
		p.ReservationDuration = models.DefaultReservationDurationMinutes * time.Minute
	}
	if p.CancellationWindow <= 0 {
		p.CancellationWindow = models.DefaultCancellationWindowHours * time.Hour
	}
	return p
}

// locations caches resolved zones by name; unknown names map to UTC.
var locations sync.Map

// Location falls back to UTC for unknown zone names.
func (p Policy) Location() *time.Location {
	if loc, ok := locations.Load(p.Timezone); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		utils.InfoLogger.WithField("timezone", p.Timezone).Warn("unknown restaurant timezone, using UTC")
		loc = time.UTC
	}
	actual, _ := locations.LoadOrStore(p.Timezone, loc)
	return actual.(*time.Location)
}

// PolicyProvider loads restaurant policies, read-through cached in Redis when a
// client is configured. Cache failures fall back to the store.
type PolicyProvider struct {
	store RestaurantStore
	cache *redis.Client
	ttl   time.Duration
}

func NewPolicyProvider(store RestaurantStore, cache *redis.Client, ttl time.Duration) *PolicyProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PolicyProvider{store: store, cache: cache, ttl: ttl}
}

func policyCacheKey(restaurantID uint) string {
	return fmt.Sprintf("restaurant:%d:policy", restaurantID)
}

func (p *PolicyProvider) Get(ctx context.Context, restaurantID uint) (Policy, error) {
	if p.cache != nil {
		raw, err := p.cache.Get(ctx, policyCacheKey(restaurantID)).Bytes()
		if err == nil {
			var cached Policy
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			utils.InfoLogger.WithError(err).Warn("policy cache read failed")
		}
	}

	r, err := p.store.GetRestaurant(ctx, restaurantID)
	if errors.Is(err, ErrRecordNotFound) {
		return Policy{}, notFoundError(CodeRestaurantNotFound, "restaurant %d not found", restaurantID)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("load restaurant %d: %w", restaurantID, err)
	}
	policy := PolicyFromRestaurant(r)

	if p.cache != nil {
		if raw, err := json.Marshal(policy); err == nil {
			if err := p.cache.Set(ctx, policyCacheKey(restaurantID), raw, p.ttl).Err(); err != nil {
				utils.InfoLogger.WithFields(logrus.Fields{"restaurant_id": restaurantID}).
					WithError(err).Warn("policy cache write failed")
			}
		}
	}
	return policy, nil
}

// Invalidate drops a cached policy after the restaurant row changes.
func (p *PolicyProvider) Invalidate(ctx context.Context, restaurantID uint) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Del(ctx, policyCacheKey(restaurantID)).Err()
}
