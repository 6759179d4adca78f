package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedRunner drives the scheduler with per-tenant behavior.
type scriptedRunner struct {
	mu      sync.Mutex
	tenants []string
	fail    map[string]error
	panics  map[string]bool
	calls   map[string]int
	states  map[string]*TenantState
	onCycle func(tenantID string)
}

func newScriptedRunner(tenants ...string) *scriptedRunner {
	return &scriptedRunner{
		tenants: tenants,
		fail:    make(map[string]error),
		panics:  make(map[string]bool),
		calls:   make(map[string]int),
		states:  make(map[string]*TenantState),
	}
}

func (r *scriptedRunner) setTenants(tenants ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = tenants
}

func (r *scriptedRunner) ActiveTenants(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenants...), nil
}

func (r *scriptedRunner) RunCycle(ctx context.Context, tenantID string, state *TenantState) (PublishResult, error) {
	r.mu.Lock()
	r.calls[tenantID]++
	r.states[tenantID] = state
	failErr := r.fail[tenantID]
	shouldPanic := r.panics[tenantID]
	onCycle := r.onCycle
	r.mu.Unlock()

	if onCycle != nil {
		onCycle(tenantID)
	}
	if shouldPanic {
		panic("corrupt tenant data")
	}
	if failErr != nil {
		return PublishResult{}, failErr
	}
	if ctx.Err() != nil {
		return PublishResult{}, ctx.Err()
	}
	if state.LastHash == "h" {
		return PublishResult{Hash: "h"}, nil
	}
	state.LastHash = "h"
	state.Generation++
	return PublishResult{Changed: true, Hash: "h"}, nil
}

func (r *scriptedRunner) callCount(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[tenantID]
}

func TestScheduler_FailingTenantsAreIsolated(t *testing.T) {
	r := newScriptedRunner("t1", "t2", "t3", "t4")
	r.fail["t2"] = errors.New("db read failed")
	r.panics["t3"] = true

	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())
	pr := s.RunPass(context.Background())

	assert.Equal(t, PassResult{Tenants: 4, Published: 2, Failed: 2}, pr)
	assert.Equal(t, 1, r.callCount("t4"), "tenant after a panicking one still runs")

	pr = s.RunPass(context.Background())
	assert.Equal(t, PassResult{Tenants: 4, Unchanged: 2, Failed: 2}, pr)
}

func TestScheduler_StateCarriedAcrossPasses(t *testing.T) {
	r := newScriptedRunner("t1")
	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())

	s.RunPass(context.Background())
	s.RunPass(context.Background())

	st, ok := s.State("t1")
	require.True(t, ok)
	assert.Equal(t, "h", st.LastHash)
	assert.Equal(t, int64(1), st.Generation)
}

func TestScheduler_PrunesInactiveTenants(t *testing.T) {
	r := newScriptedRunner("t1", "t2")
	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())
	s.RunPass(context.Background())

	r.setTenants("t1")
	s.RunPass(context.Background())
	_, ok := s.State("t2")
	assert.False(t, ok)

	r.setTenants("t1", "t2")
	pr := s.RunPass(context.Background())
	assert.Equal(t, 1, pr.Published, "reactivated tenant publishes afresh")
}

func TestScheduler_RefreshTenant(t *testing.T) {
	r := newScriptedRunner("t1")
	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())

	res, err := s.RefreshTenant(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, res.Changed)

	_, err = s.RefreshTenant(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTenantInactive)
	assert.Zero(t, r.callCount("ghost"))
}

func TestScheduler_CancelStopsBeforeNextTenant(t *testing.T) {
	r := newScriptedRunner("t1", "t2")
	ctx, cancel := context.WithCancel(context.Background())
	r.onCycle = func(tenantID string) {
		if tenantID == "t1" {
			cancel()
		}
	}

	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())
	pr := s.RunPass(ctx)

	assert.Equal(t, 1, pr.Tenants)
	assert.Equal(t, 1, pr.Published, "running cycle finishes despite cancellation")
	assert.Zero(t, r.callCount("t2"))
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	r := newScriptedRunner("t1")
	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())

	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.callCount("t1") == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, r.callCount("t1"))
}

func TestScheduler_TicksRepeat(t *testing.T) {
	r := newScriptedRunner("t1")
	s := NewScheduler(r, 10*time.Millisecond, time.Second, zap.NewNop())

	s.Start(context.Background())
	defer s.Stop()
	require.Eventually(t, func() bool { return r.callCount("t1") >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(newScriptedRunner(), 0, 0, zap.NewNop())
	s.Stop()
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, DefaultCycleTimeout, s.cycleTimeout)
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	r := newScriptedRunner("t1")
	s := NewScheduler(r, time.Hour, time.Second, zap.NewNop())

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.callCount("t1") >= 1 }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, s.Stop)
	assert.NotPanics(t, s.Stop)
	assert.Equal(t, 1, r.callCount("t1"), "second Start must not launch another loop")

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, r.callCount("t1"), "Start after Stop must not restart")
}
