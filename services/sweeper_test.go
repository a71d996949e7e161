package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/models"
)

func TestSweepOnceExpiresLapsedHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.hold(t, ptr(tableFive), "2025-06-01", "19:00")
	other := f.hold(t, ptr(tableSix), "2025-06-01", "19:00")
	paid := f.hold(t, nil, "2025-06-01", "20:00")
	_, err := f.core.Payments.Handle(ctx, f.succeeded("pay_kept", paid.ID))
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	fresh := f.hold(t, ptr(tableFive), "2025-06-01", "21:00")
	f.clock.Advance(6 * time.Minute)

	f.core.Sweeper.BatchSize = 1
	n, err := f.core.Sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assert.Equal(t, models.ReservationExpired, f.reload(t, old.ID).Status)
	assert.Equal(t, models.ReservationExpired, f.reload(t, other.ID).Status)
	assert.Equal(t, models.ReservationConfirmed, f.reload(t, paid.ID).Status)
	assert.Equal(t, models.ReservationTentative, f.reload(t, fresh.ID).Status)
	assert.Equal(t, float64(2), f.counter(t, "reservation_holds_swept_total"))

	n, err = f.core.Sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeperStartStop(t *testing.T) {
	f := newFixture(t)
	hold := f.hold(t, nil, "2025-06-01", "19:00")
	f.clock.Advance(time.Hour)

	f.core.Sweeper.Interval = 50 * time.Millisecond
	f.core.Sweeper.Start()
	defer f.core.Sweeper.Stop()

	assert.Eventually(t, func() bool {
		var res models.Reservation
		if err := f.db.First(&res, "id = ?", hold.ID).Error; err != nil {
			return false
		}
		return res.Status == models.ReservationExpired
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSweeperStopTwice(t *testing.T) {
	f := newFixture(t)
	f.core.Sweeper.Interval = time.Minute
	f.core.Sweeper.Start()

	assert.NotPanics(t, func() {
		f.core.Sweeper.Stop()
		f.core.Sweeper.Stop()
	})
}
