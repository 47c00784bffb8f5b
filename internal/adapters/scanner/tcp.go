package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

const (
	DefaultConcurrency  = 64
	DefaultProbeTimeout = 750 * time.Millisecond
	assessTimeout       = 30 * time.Second
)

// TCPConfig tunes the connect scanner. Zero values use the defaults.
type TCPConfig struct {
	Ports         []int
	LivenessPorts []int
	Concurrency   int
	ProbeTimeout  time.Duration
}

// TCPScanner probes with plain TCP connects. A host counts as alive when any
// probe connects or is actively refused.
type TCPScanner struct {
	rules         *ExposureRules
	ports         []int
	livenessPorts []int
	concurrency   int
	probeTimeout  time.Duration
	resolver      *net.Resolver
	logger        *slog.Logger
	now           func() time.Time
}

func NewTCPScanner(cfg TCPConfig, rules *ExposureRules, logger *slog.Logger) *TCPScanner {
	if len(cfg.Ports) == 0 {
		cfg.Ports = DefaultPorts
	}
	if len(cfg.LivenessPorts) == 0 {
		cfg.LivenessPorts = livenessPorts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if rules == nil {
		rules = DefaultExposureRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TCPScanner{
		rules:         rules,
		ports:         domain.SortedPorts(cfg.Ports),
		livenessPorts: cfg.LivenessPorts,
		concurrency:   cfg.Concurrency,
		probeTimeout:  cfg.ProbeTimeout,
		resolver:      net.DefaultResolver,
		logger:        logger.With("component", "tcp_scanner"),
		now:           time.Now,
	}
}

// Discover sweeps target. Hosts found before the sweep deadline are
// returned; cancelling ctx aborts with its error.
func (s *TCPScanner) Discover(ctx context.Context, target string, timeout time.Duration) ([]domain.HostObservation, error) {
	hosts, hostname, err := s.resolveTargets(ctx, target)
	if err != nil {
		return nil, err
	}

	sweepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := make([]*domain.HostObservation, len(hosts))
	g, gctx := errgroup.WithContext(sweepCtx)
	g.SetLimit(s.concurrency)
	for i, ip := range hosts {
		if gctx.Err() != nil {
			break
		}
		i, ip := i, ip
		g.Go(func() error {
			open, alive := s.probe(gctx, ip, s.livenessPorts)
			if !alive {
				return nil
			}
			obs := &domain.HostObservation{
				IP:        ip,
				Hostname:  hostname,
				IsAlive:   true,
				OpenPorts: open,
				Services:  servicesFor(open),
			}
			if obs.Hostname == "" {
				obs.Hostname = s.reverseLookup(gctx, ip)
			}
			found[i] = obs
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.HostObservation, 0, len(found))
	for _, obs := range found {
		if obs != nil {
			out = append(out, *obs)
		}
	}
	s.logger.Debug("Discovery sweep finished", "target", target, "probed", len(hosts), "alive", len(out))
	return out, nil
}

// ScanHost connects to every requested port on target.
func (s *TCPScanner) ScanHost(ctx context.Context, target string, ports []int, timeout time.Duration) (domain.HostScan, error) {
	if len(ports) == 0 {
		ports = s.ports
	}
	if net.ParseIP(target) == nil {
		if _, err := s.resolver.LookupHost(ctx, target); err != nil {
			return domain.HostScan{}, fmt.Errorf("resolve %s: %w", target, err)
		}
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	open, alive := s.probe(scanCtx, target, ports)
	if err := ctx.Err(); err != nil {
		return domain.HostScan{}, err
	}

	return domain.HostScan{
		IsAlive:   alive,
		OpenPorts: open,
		Services:  servicesFor(open),
		OSInfo:    guessOS(open),
	}, nil
}

// AssessVulnerabilities probes the default ports and evaluates the exposure
// rules against what answered.
func (s *TCPScanner) AssessVulnerabilities(ctx context.Context, target string, aggressive bool) ([]domain.Vulnerability, error) {
	host, err := s.ScanHost(ctx, target, nil, assessTimeout)
	if err != nil {
		return nil, err
	}
	return s.rules.Evaluate(host, aggressive, s.now()), nil
}

// probe dials ports concurrently and returns the open ones sorted.
func (s *TCPScanner) probe(ctx context.Context, host string, ports []int) ([]int, bool) {
	var (
		mu    sync.Mutex
		open  []int
		alive bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, port := range ports {
		if gctx.Err() != nil {
			break
		}
		port := port
		g.Go(func() error {
			state := s.dial(gctx, host, port)
			if state == portFiltered {
				return nil
			}
			mu.Lock()
			alive = true
			if state == portOpen {
				open = append(open, port)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(open)
	if open == nil {
		open = []int{}
	}
	return open, alive
}

type portState int

const (
	portFiltered portState = iota
	portClosed
	portOpen
)

func (s *TCPScanner) dial(ctx context.Context, host string, port int) portState {
	d := net.Dialer{Timeout: s.probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		conn.Close()
		return portOpen
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return portClosed
	}
	return portFiltered
}

// resolveTargets expands target into IPs. For a hostname the name is
// returned too so observations keep it.
func (s *TCPScanner) resolveTargets(ctx context.Context, target string) ([]string, string, error) {
	target = strings.TrimSpace(target)
	if net.ParseIP(target) != nil {
		return []string{target}, "", nil
	}
	if _, _, err := net.ParseCIDR(target); err == nil {
		hosts, err := expandTarget(target)
		return hosts, "", err
	}

	addrs, err := s.resolver.LookupHost(ctx, target)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", target, err)
	}
	return addrs[:1], target, nil
}

func (s *TCPScanner) reverseLookup(ctx context.Context, ip string) string {
	names, err := s.resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

var _ ports.Scanner = (*TCPScanner)(nil)
