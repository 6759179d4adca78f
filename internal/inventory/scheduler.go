package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTenantInactive is returned by RefreshTenant for unknown or inactive
// tenants.
var ErrTenantInactive = errors.New("tenant not active")

// CycleRunner is the per-tenant work the scheduler drives.
type CycleRunner interface {
	ActiveTenants(ctx context.Context) ([]string, error)
	RunCycle(ctx context.Context, tenantID string, state *TenantState) (PublishResult, error)
}

// PassResult summarizes one pass over the active tenants.
type PassResult struct {
	Tenants   int
	Published int
	Unchanged int
	Failed    int
}

// Scheduler runs a pass over all active tenants immediately on Start and
// then on every tick. Tenants run one after another; a failing or panicking
// tenant is logged and skipped. It owns the per-tenant state, and its lock
// keeps passes and manual refreshes from overlapping.
type Scheduler struct {
	runner       CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	states map[string]*TenantState

	lifecycle sync.Mutex
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// Defaults applied when a non-positive interval or timeout is given.
const (
	DefaultInterval     = 4500 * time.Millisecond
	DefaultCycleTimeout = 30 * time.Second
)

// NewScheduler creates a scheduler. cycleTimeout bounds a single tenant
// cycle.
func NewScheduler(runner CycleRunner, interval, cycleTimeout time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if cycleTimeout <= 0 {
		cycleTimeout = DefaultCycleTimeout
	}
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		logger:       logger,
		states:       make(map[string]*TenantState),
		done:         make(chan struct{}),
	}
}

// Start begins the pass loop in a background goroutine. A scheduler runs
// at most once; later calls, including after Stop, are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.started {
		s.logger.Warn("inventory scheduler already started")
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	s.logger.Info("inventory scheduler started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for it to exit. No tenant cycle starts
// after Stop is called; a cycle already running is allowed to finish.
// Stop is safe to call more than once.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	cancel := s.cancel
	s.lifecycle.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.done
	s.logger.Info("inventory scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.RunPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass reconciles every active tenant once. Cancelling ctx stops the pass
// before the next tenant.
func (s *Scheduler) RunPass(ctx context.Context) PassResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pr PassResult
	tenants, err := s.runner.ActiveTenants(ctx)
	if err != nil {
		s.logger.Warn("failed to list active tenants", zap.Error(err))
		return pr
	}
	s.pruneStates(tenants)

	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			break
		}
		pr.Tenants++
		res, err := s.runTenant(ctx, tenantID)
		switch {
		case err != nil:
			pr.Failed++
		case res.Changed:
			pr.Published++
		default:
			pr.Unchanged++
		}
	}

	s.logger.Debug("inventory pass complete",
		zap.Int("tenants", pr.Tenants),
		zap.Int("published", pr.Published),
		zap.Int("unchanged", pr.Unchanged),
		zap.Int("failed", pr.Failed),
	)
	return pr
}

// RefreshTenant runs one cycle for a single active tenant outside the
// ticker.
func (s *Scheduler) RefreshTenant(ctx context.Context, tenantID string) (PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenants, err := s.runner.ActiveTenants(ctx)
	if err != nil {
		return PublishResult{}, err
	}
	if !slices.Contains(tenants, tenantID) {
		return PublishResult{}, fmt.Errorf("%w: %s", ErrTenantInactive, tenantID)
	}
	return s.runTenant(ctx, tenantID)
}

// runTenant executes one cycle detached from the caller's cancellation so a
// shutdown never interrupts a cycle midway. Caller holds s.mu.
func (s *Scheduler) runTenant(ctx context.Context, tenantID string) (res PublishResult, err error) {
	state, ok := s.states[tenantID]
	if !ok {
		state = &TenantState{}
		s.states[tenantID] = state
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tenant %s cycle panicked: %v", tenantID, r)
		}
		cycleDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			cyclesTotal.WithLabelValues(resultFailed).Inc()
			s.logger.Error("tenant cycle failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		case res.Changed:
			cyclesTotal.WithLabelValues(resultPublished).Inc()
		default:
			cyclesTotal.WithLabelValues(resultUnchanged).Inc()
		}
	}()

	return s.runner.RunCycle(cctx, tenantID, state)
}

// pruneStates forgets tenants that are no longer active so a reactivated
// tenant publishes afresh. Caller holds s.mu.
func (s *Scheduler) pruneStates(active []string) {
	for id := range s.states {
		if !slices.Contains(active, id) {
			delete(s.states, id)
			tenantDevices.DeletePartialMatch(map[string]string{"tenant": id})
		}
	}
}

// State returns a copy of the tenant's carried state.
func (s *Scheduler) State(tenantID string) (TenantState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[tenantID]
	if !ok {
		return TenantState{}, false
	}
	return *st, true
}
