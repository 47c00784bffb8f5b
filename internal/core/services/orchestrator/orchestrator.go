// Package orchestrator runs scans asynchronously and owns their records.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/telemetry"
)

// DefaultMaxConcurrentScans bounds the scans holding an execution slot.
const DefaultMaxConcurrentScans = 100

// ErrInterrupted is recorded on scans that were in flight when the process stopped.
var ErrInterrupted = errors.New("scan interrupted by shutdown")

// Config tunes the orchestrator.
type Config struct {
	MaxConcurrentScans int
	DefaultScanRange   string
	// DefaultTimeout applies to requests without a timeout, in seconds.
	DefaultTimeout int
}

// Orchestrator implements ports.ScanOrchestrator.
type Orchestrator struct {
	scanner  ports.Scanner
	registry ports.DeviceRegistry
	trigger  ports.AutomationTrigger

	mu    sync.RWMutex
	scans map[string]*ScanController
	tasks map[string]*scanTask

	slots   chan struct{}
	wg      sync.WaitGroup
	subject *ScanSubject
	tracer  trace.Tracer

	defaultRange   string
	defaultTimeout int
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator. trigger may be nil when no
// automation is wired.
func NewOrchestrator(scanner ports.Scanner, registry ports.DeviceRegistry, trigger ports.AutomationTrigger, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxConcurrentScans <= 0 {
		cfg.MaxConcurrentScans = DefaultMaxConcurrentScans
	}
	if cfg.DefaultTimeout <= 0 || cfg.DefaultTimeout > domain.MaxScanTimeout {
		cfg.DefaultTimeout = domain.DefaultScanTimeout
	}
	o := &Orchestrator{
		scanner:        scanner,
		registry:       registry,
		trigger:        trigger,
		scans:          make(map[string]*ScanController),
		tasks:          make(map[string]*scanTask),
		slots:          make(chan struct{}, cfg.MaxConcurrentScans),
		subject:        NewScanSubject(),
		tracer:         telemetry.Tracer("orchestrator"),
		defaultRange:   cfg.DefaultScanRange,
		defaultTimeout: cfg.DefaultTimeout,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// AddObserver registers an observer for scan transitions.
func (o *Orchestrator) AddObserver(obs ports.ScanObserver) {
	o.subject.AddObserver(obs)
}

// Start validates req, records a queued scan and launches its execution in
// the background. It never waits for the scan to run.
func (o *Orchestrator) Start(ctx context.Context, req domain.ScanRequest) (domain.Scan, error) {
	if req.Timeout == 0 {
		req.Timeout = o.defaultTimeout
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.Scan{}, err
	}

	c := &ScanController{scan: domain.Scan{
		ID:         uuid.NewString(),
		Target:     req.Target,
		Type:       req.Type,
		Ports:      domain.SortedPorts(req.Ports),
		Timeout:    req.Timeout,
		Aggressive: req.Aggressive,
		State:      domain.ScanQueued,
		StartedAt:  o.now().UTC(),
	}}
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := &scanTask{cancel: cancel, done: make(chan struct{})}
	queued := c.snapshot()

	o.mu.Lock()
	o.scans[queued.ID] = c
	o.tasks[queued.ID] = task
	o.mu.Unlock()

	telemetry.ScansStarted.WithLabelValues(string(queued.Type)).Inc()
	o.logger.Info("scan queued", "scan_id", queued.ID, "type", queued.Type, "target", queued.Target)
	o.subject.Notify(ctx, queued)

	o.wg.Add(1)
	go o.execute(taskCtx, queued.ID, c, task)

	return queued, nil
}

// NetworkDiscovery starts a discovery scan of networkRange, or of the
// configured default range when it is empty.
func (o *Orchestrator) NetworkDiscovery(ctx context.Context, networkRange string) (domain.Scan, error) {
	if networkRange == "" {
		networkRange = o.defaultRange
	}
	return o.Start(ctx, domain.ScanRequest{
		Target:  networkRange,
		Type:    domain.ScanTypeDiscovery,
		Timeout: domain.DiscoveryScanTimeout,
	})
}

// VulnerabilityScan starts an aggressive vulnerability scan of target.
func (o *Orchestrator) VulnerabilityScan(ctx context.Context, target string) (domain.Scan, error) {
	return o.Start(ctx, domain.ScanRequest{
		Target:     target,
		Type:       domain.ScanTypeVulnerability,
		Timeout:    domain.VulnScanTimeout,
		Aggressive: true,
	})
}

func (o *Orchestrator) execute(ctx context.Context, id string, c *ScanController, task *scanTask) {
	defer o.wg.Done()
	defer o.finish(id, c, task)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("scan panicked", "scan_id", id, "panic", r)
			o.fail(ctx, c, fmt.Errorf("panic: %v", r))
		}
	}()

	select {
	case o.slots <- struct{}{}:
		telemetry.ActiveScans.Inc()
		defer func() {
			<-o.slots
			telemetry.ActiveScans.Dec()
		}()
	case <-ctx.Done():
		return
	}

	running, ok := c.transition(domain.ScanRunning, o.now().UTC(), nil)
	if !ok {
		return
	}
	o.subject.Notify(ctx, running)

	ctx, span := o.tracer.Start(ctx, "scan."+string(running.Type), trace.WithAttributes(
		attribute.String("scan.id", running.ID),
		attribute.String("scan.target", running.Target),
	))
	defer span.End()

	out, err := o.runStrategy(ctx, running)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.fail(ctx, c, err)
		return
	}

	completed, ok := c.transition(domain.ScanCompleted, o.now().UTC(), func(s *domain.Scan) {
		s.Results = out.results
		s.DevicesFound = out.devicesFound
		s.VulnerabilitiesFound = out.vulnerabilitiesFound
	})
	if ok {
		o.logger.Info("scan completed", "scan_id", id, "devices_found", completed.DevicesFound,
			"vulnerabilities_found", completed.VulnerabilitiesFound)
		o.subject.Notify(ctx, completed)
	}
}

func (o *Orchestrator) fail(ctx context.Context, c *ScanController, cause error) {
	execErr := &domain.ExecutionError{ScanID: c.snapshot().ID, Err: cause}
	failed, ok := c.transition(domain.ScanFailed, o.now().UTC(), func(s *domain.Scan) {
		s.Error = cause.Error()
	})
	if !ok {
		// Already cancelled; the record stays frozen.
		return
	}
	o.logger.Error("scan failed", "scan_id", failed.ID, "error", execErr)
	o.subject.Notify(ctx, failed)
}

// finish always runs: it drops the task handle, releases waiters and
// records metrics for whatever terminal state the scan ended in.
func (o *Orchestrator) finish(id string, c *ScanController, task *scanTask) {
	o.mu.Lock()
	delete(o.tasks, id)
	o.mu.Unlock()
	task.cancel()
	close(task.done)

	final := c.snapshot()
	telemetry.ScansFinished.WithLabelValues(string(final.Type), string(final.State)).Inc()
	if d := final.Duration(); d > 0 {
		telemetry.ScanDuration.WithLabelValues(string(final.Type)).Observe(d.Seconds())
	}
}

// Cancel stops a queued or running scan. It reports false for unknown scans
// and for scans already in a terminal state.
func (o *Orchestrator) Cancel(ctx context.Context, id string) bool {
	o.mu.RLock()
	c, ok := o.scans[id]
	task := o.tasks[id]
	o.mu.RUnlock()
	if !ok {
		return false
	}

	cancelled, ok := c.transition(domain.ScanCancelled, o.now().UTC(), nil)
	if !ok {
		return false
	}
	if task != nil {
		task.cancel()
	}
	o.logger.Info("scan cancelled", "scan_id", id)
	o.subject.Notify(ctx, cancelled)
	return true
}

// Get returns a copy of the scan or a NotFoundError.
func (o *Orchestrator) Get(ctx context.Context, id string) (domain.Scan, error) {
	o.mu.RLock()
	c, ok := o.scans[id]
	o.mu.RUnlock()
	if !ok {
		return domain.Scan{}, domain.NewNotFoundError("scan", id)
	}
	return c.snapshot(), nil
}

// List returns scans matching filter, newest first, at most limit of them
// (all when limit <= 0).
func (o *Orchestrator) List(ctx context.Context, filter domain.ScanFilter, limit int) []domain.Scan {
	all := o.History(ctx)
	out := make([]domain.Scan, 0, len(all))
	for _, s := range all {
		if !filter.Matches(s) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// History returns every known scan, newest first.
func (o *Orchestrator) History(ctx context.Context) []domain.Scan {
	o.mu.RLock()
	controllers := make([]*ScanController, 0, len(o.scans))
	for _, c := range o.scans {
		controllers = append(controllers, c)
	}
	o.mu.RUnlock()

	out := make([]domain.Scan, 0, len(controllers))
	for _, c := range controllers {
		out = append(out, c.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Wait blocks until the scan's execution has finished or ctx is done, then
// returns the scan.
func (o *Orchestrator) Wait(ctx context.Context, id string) (domain.Scan, error) {
	o.mu.RLock()
	task := o.tasks[id]
	o.mu.RUnlock()
	if task != nil {
		select {
		case <-task.done:
		case <-ctx.Done():
			return domain.Scan{}, ctx.Err()
		}
	}
	return o.Get(ctx, id)
}

// Restore loads persisted scans. Scans that were still queued or running
// when they were saved are marked failed, since their task is gone.
func (o *Orchestrator) Restore(scans []domain.Scan) {
	now := o.now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range scans {
		s = s.Clone()
		if !s.State.Terminal() {
			s.State = domain.ScanFailed
			s.Error = ErrInterrupted.Error()
			ts := now
			s.CompletedAt = &ts
		}
		o.scans[s.ID] = &ScanController{scan: s}
	}
}

// Shutdown cancels every in-flight scan and waits for the tasks to return.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.RLock()
	ids := make([]string, 0, len(o.tasks))
	for id := range o.tasks {
		ids = append(ids, id)
	}
	o.mu.RUnlock()

	for _, id := range ids {
		o.Cancel(ctx, id)
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	// The last transitions are still on their way to observers.
	return o.subject.Wait(ctx)
}
