package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
)

func TestPolicyFromRestaurantDefaults(t *testing.T) {
	p := services.PolicyFromRestaurant(&models.Restaurant{ID: 7})

	assert.Equal(t, "UTC", p.Timezone)
	assert.Equal(t, 15*time.Minute, p.HoldTTL)
	assert.Equal(t, 90*time.Minute, p.ReservationDuration)
	assert.Equal(t, 12*time.Hour, p.CancellationWindow)
	assert.False(t, p.StrictHoldConflicts)
}

func TestPolicyLocationIsResolvedOnce(t *testing.T) {
	jakarta := services.Policy{Timezone: "Asia/Jakarta"}

	first := jakarta.Location()
	assert.Equal(t, "Asia/Jakarta", first.String())
	assert.Same(t, first, jakarta.Location())
	assert.Same(t, first, services.Policy{Timezone: "Asia/Jakarta"}.Location())

	assert.Equal(t, time.UTC, services.Policy{Timezone: "Mars/Olympus_Mons"}.Location())
}
