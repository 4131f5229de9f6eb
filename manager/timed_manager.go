package manager

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimedManager drives a Manager's periodic retransmit decision on its own
// goroutine, waiting a jittered interval uniformly distributed between
// MinIntervalMs and MaxIntervalMs between each pass. Jitter keeps many
// transceivers across a population from retransmitting in lockstep.
type TimedManager struct {
	*Manager

	minInterval time.Duration
	maxInterval time.Duration
	clock       clockwork.Clock

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewTimed wraps m with a periodic retransmit driver. minIntervalMs and
// maxIntervalMs bound the jittered wait between passes; if max is not
// greater than min, every wait uses min exactly.
func NewTimed(m *Manager, minIntervalMs, maxIntervalMs uint64, clock clockwork.Clock) *TimedManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimedManager{
		Manager:     m,
		minInterval: time.Duration(minIntervalMs) * time.Millisecond,
		maxInterval: time.Duration(maxIntervalMs) * time.Millisecond,
		clock:       clock,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the retransmit loop on a new goroutine. It is not safe to
// call Start twice on the same TimedManager.
func (tm *TimedManager) Start() {
	go tm.run()
}

// Stop signals the loop to exit and waits for it to do so.
func (tm *TimedManager) Stop() {
	tm.stopOnce.Do(func() { close(tm.stopCh) })
	<-tm.doneCh
}

func (tm *TimedManager) run() {
	defer close(tm.doneCh)
	for {
		select {
		case <-tm.stopCh:
			return
		case <-tm.clock.After(tm.nextInterval()):
			tm.RetransmitAll()
		}
	}
}

func (tm *TimedManager) nextInterval() time.Duration {
	if tm.maxInterval <= tm.minInterval {
		return tm.minInterval
	}
	span := tm.maxInterval - tm.minInterval
	return tm.minInterval + time.Duration(rand.Int63n(int64(span)))
}
