package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// ScanController guards one scan record. Every field of scan is read and
// written under mu; a record that reached a terminal state is never changed.
type ScanController struct {
	mu   sync.Mutex
	scan domain.Scan
}

func (c *ScanController) snapshot() domain.Scan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scan.Clone()
}

// transition moves the record to state if the lifecycle allows it and
// applies fn under the same lock. It reports whether the move happened and
// returns the resulting copy.
func (c *ScanController) transition(state domain.ScanState, now time.Time, fn func(s *domain.Scan)) (domain.Scan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !domain.CanTransition(c.scan.State, state) {
		return c.scan.Clone(), false
	}
	c.scan.State = state
	if state.Terminal() {
		ts := now
		c.scan.CompletedAt = &ts
	}
	if fn != nil {
		fn(&c.scan)
	}
	return c.scan.Clone(), true
}

// scanTask is the handle of an in-flight execution.
type scanTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}
