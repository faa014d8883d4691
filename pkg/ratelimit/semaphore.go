package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for concurrency slots.
var (
	slotsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guildstatus_slots_in_use",
		Help: "Concurrency slots currently held by in-flight requests",
	})

	slotWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildstatus_slot_wait_seconds",
		Help:    "Time spent waiting for a free concurrency slot",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Semaphore caps the number of simultaneously in-flight upstream requests.
// It is backed by a buffered channel acting as a fixed pool of slots; the
// number of held slots never exceeds the pool size.
type Semaphore struct {
	slots chan struct{}
	size  int
}

// NewSemaphore creates a semaphore with the given pool size.
// Size must be at least 1.
func NewSemaphore(size int) (*Semaphore, error) {
	if size < 1 {
		return nil, fmt.Errorf("semaphore size must be >= 1 (got %d)", size)
	}

	return &Semaphore{
		slots: make(chan struct{}, size),
		size:  size,
	}, nil
}

// Acquire blocks until a slot is free and returns a release function. The
// release function is safe to call more than once; the slot is returned to
// the pool exactly once. Callers must invoke it on every exit path:
//
//	release, err := sem.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer release()
func (s *Semaphore) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()

	select {
	case s.slots <- struct{}{}:
		slotWaitSeconds.Observe(time.Since(start).Seconds())
		slotsInUse.Inc()

		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.slots
				slotsInUse.Dec()
			})
		}, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the configured pool size.
func (s *Semaphore) Size() int {
	return s.size
}

// InUse returns the number of slots currently held.
func (s *Semaphore) InUse() int {
	return len(s.slots)
}
