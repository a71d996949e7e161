package services

import (
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
)

// ExpirationPolicy decides whether a tentative hold is still valid. Expiry is
// computed from expires_at at read time; the persisted status may lag behind.
type ExpirationPolicy struct {
	clock Clock
}

func NewExpirationPolicy(clock Clock) *ExpirationPolicy {
	return &ExpirationPolicy{clock: clock}
}

func (p *ExpirationPolicy) Now() time.Time {
	return p.clock.Now()
}

func (p *ExpirationPolicy) ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = models.DefaultHoldTTLMinutes * time.Minute
	}
	return now.Add(ttl)
}

// IsExpired reports whether r is a tentative hold whose expires_at is not after
// now. A tentative row without expires_at is treated as expired.
func (p *ExpirationPolicy) IsExpired(r *models.Reservation, now time.Time) bool {
	if r.Status != models.ReservationTentative {
		return false
	}
	return r.ExpiresAt == nil || !r.ExpiresAt.After(now)
}

// IsLive reports whether r currently occupies its slot.
func (p *ExpirationPolicy) IsLive(r *models.Reservation, now time.Time) bool {
	if r.Status.IsBinding() {
		return true
	}
	return r.Status == models.ReservationTentative && !p.IsExpired(r, now)
}

// Effective returns the reservation as readers must see it at now. The second
// result is true when the stored row still says tentative but the hold has lapsed.
func (p *ExpirationPolicy) Effective(r *models.Reservation, now time.Time) (*models.Reservation, bool) {
	if !p.IsExpired(r, now) {
		return r, false
	}
	view := *r
	view.Status = models.ReservationExpired
	return &view, true
}
