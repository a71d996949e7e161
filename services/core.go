package services

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures NewCore. Zero values pick production defaults.
type Options struct {
	Clock          Clock
	Notifier       Notifier
	Metrics        *Metrics
	Redis          *redis.Client
	PolicyCacheTTL time.Duration
	SweepInterval  time.Duration
	// Background runs deferred best-effort writes; defaults to a new goroutine.
	Background func(func())
}

// Core wires the reservation components around one store.
type Core struct {
	Store        Store
	Clock        Clock
	Expiry       *ExpirationPolicy
	Conflicts    *ConflictDetector
	Policies     *PolicyProvider
	Holds        *HoldManager
	Orders       *OrderMaterializer
	Payments     *PaymentHandler
	Cancellation *CancellationEnforcer
	CheckIn      *CheckInHandler
	Sweeper      *Sweeper
}

func NewCore(store Store, opts Options) *Core {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Background == nil {
		opts.Background = func(fn func()) { go fn() }
	}

	expiry := NewExpirationPolicy(opts.Clock)
	conflicts := NewConflictDetector(expiry)
	policies := NewPolicyProvider(store, opts.Redis, opts.PolicyCacheTTL)
	orders := &OrderMaterializer{store: store, metrics: opts.Metrics}

	return &Core{
		Store:     store,
		Clock:     opts.Clock,
		Expiry:    expiry,
		Conflicts: conflicts,
		Policies:  policies,
		Holds: &HoldManager{
			store:      store,
			policies:   policies,
			expiry:     expiry,
			conflicts:  conflicts,
			notifier:   opts.Notifier,
			metrics:    opts.Metrics,
			background: opts.Background,
		},
		Orders: orders,
		Payments: &PaymentHandler{
			store:     store,
			policies:  policies,
			expiry:    expiry,
			conflicts: conflicts,
			orders:    orders,
			notifier:  opts.Notifier,
			metrics:   opts.Metrics,
		},
		Cancellation: &CancellationEnforcer{
			store:    store,
			policies: policies,
			expiry:   expiry,
			notifier: opts.Notifier,
			metrics:  opts.Metrics,
		},
		CheckIn: &CheckInHandler{
			store:    store,
			policies: policies,
			expiry:   expiry,
			notifier: opts.Notifier,
			metrics:  opts.Metrics,
		},
		Sweeper: NewSweeper(store, opts.Clock, opts.Metrics, opts.SweepInterval),
	}
}
