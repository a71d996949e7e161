package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

const defaultSweepBatch = 500

// Sweeper periodically rewrites lapsed tentative holds to expired. It only
// tidies storage; readers already treat those holds as expired.
type Sweeper struct {
	store     ReservationStore
	clock     Clock
	metrics   *Metrics
	Interval  time.Duration
	BatchSize int
	StopChan  chan struct{}
	stopOnce  sync.Once
}

func NewSweeper(store ReservationStore, clock Clock, metrics *Metrics, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		clock:     clock,
		metrics:   metrics,
		Interval:  interval,
		BatchSize: defaultSweepBatch,
		StopChan:  make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	if s.Interval <= 0 {
		utils.InfoLogger.Info("hold sweeper disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
				if _, err := s.SweepOnce(ctx); err != nil {
					utils.ErrorLogger.WithError(err).Error("hold sweep failed")
				}
				cancel()
			case <-s.StopChan:
				return
			}
		}
	}()
}

// Stop is safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.StopChan) })
}

// SweepOnce expires every lapsed hold in batches and returns how many rows it rewrote.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	now := s.clock.Now()

	var total int64
	for {
		n, err := s.store.ExpireStaleHolds(ctx, now, batch)
		total += n
		if err != nil {
			return total, fmt.Errorf("expire stale holds: %w", err)
		}
		if n < int64(batch) {
			break
		}
	}

	s.metrics.swept(total)
	if total > 0 {
		utils.InfoLogger.WithField("expired", total).Info("stale holds swept")
	}
	return total, nil
}
