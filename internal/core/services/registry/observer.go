package registry

import (
	"context"
	"sync"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// RegistrySubject fans device events out to observers. Every observer runs
// in its own goroutine with its own copy of the device, detached from the
// caller's cancellation.
type RegistrySubject struct {
	mu        sync.RWMutex
	observers []ports.DeviceObserver
	inflight  sync.WaitGroup
}

// NewRegistrySubject creates a subject with no observers.
func NewRegistrySubject() *RegistrySubject {
	return &RegistrySubject{}
}

// AddObserver registers an observer for all later events.
func (s *RegistrySubject) AddObserver(observer ports.DeviceObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *RegistrySubject) each(ctx context.Context, fn func(context.Context, ports.DeviceObserver)) {
	ctx = context.WithoutCancel(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		s.inflight.Add(1)
		go func(obs ports.DeviceObserver) {
			defer s.inflight.Done()
			fn(ctx, obs)
		}(obs)
	}
}

// Flush blocks until every observer call started so far has returned, or
// until ctx is done.
func (s *RegistrySubject) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyAdded reports a newly created device.
func (s *RegistrySubject) NotifyAdded(ctx context.Context, device domain.Device) {
	s.each(ctx, func(ctx context.Context, obs ports.DeviceObserver) {
		obs.OnDeviceAdded(ctx, device.Clone())
	})
}

// NotifyUpdated reports a changed device.
func (s *RegistrySubject) NotifyUpdated(ctx context.Context, device domain.Device) {
	s.each(ctx, func(ctx context.Context, obs ports.DeviceObserver) {
		obs.OnDeviceUpdated(ctx, device.Clone())
	})
}

// NotifyDeleted reports a removed device by id.
func (s *RegistrySubject) NotifyDeleted(ctx context.Context, id string) {
	s.each(ctx, func(ctx context.Context, obs ports.DeviceObserver) {
		obs.OnDeviceDeleted(ctx, id)
	})
}
