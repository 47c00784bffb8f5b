package orchestrator

import (
	"context"
	"sync"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// ScanSubject fans scan transitions out to observers.
type ScanSubject struct {
	observers []ports.ScanObserver
	mu        sync.RWMutex
	pending   sync.WaitGroup
}

// NewScanSubject creates a new subject.
func NewScanSubject() *ScanSubject {
	return &ScanSubject{observers: make([]ports.ScanObserver, 0)}
}

// AddObserver registers a new observer.
func (s *ScanSubject) AddObserver(o ports.ScanObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Notify sends a copy of scan to every observer in its own goroutine.
func (s *ScanSubject) Notify(ctx context.Context, scan domain.Scan) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		s.pending.Add(1)
		go func(o ports.ScanObserver, scan domain.Scan) {
			defer s.pending.Done()
			o.OnScanUpdated(context.WithoutCancel(ctx), scan)
		}(o, scan.Clone())
	}
}

// Wait blocks until all notifications sent so far have been delivered.
func (s *ScanSubject) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
