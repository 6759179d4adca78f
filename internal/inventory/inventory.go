// Package inventory reconciles agent heartbeats and scanner sightings into
// one deduplicated device inventory per tenant and publishes a dashboard
// snapshot whenever that inventory changes.
package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HerbHall/fleetmap/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
	_ plugin.Validator    = (*Module)(nil)
)

// Module is the inventory plugin: it owns the engine, the scheduler and the
// read endpoints.
type Module struct {
	logger    *zap.Logger
	cfg       Config
	store     *SQLStore
	snapshots SnapshotStore
	bolt      *BoltStore
	engine    *Engine
	scheduler *Scheduler
}

// New creates a new inventory plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "inventory",
		Version:     "0.1.0",
		Description: "Device reconciliation and dashboard aggregation",
		Required:    true,
		Roles:       []string{"inventory"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("inventory config: %w", err)
		}
	}
	if deps.Store == nil {
		return fmt.Errorf("inventory requires a database store")
	}

	if err := deps.Store.Migrate(ctx, "inventory", Migrations()); err != nil {
		return fmt.Errorf("inventory migrations: %w", err)
	}
	m.store = NewSQLStore(deps.Store)

	switch m.cfg.SnapshotStore {
	case SnapshotStoreBolt:
		if dir := filepath.Dir(m.cfg.BoltPath); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create bolt directory: %w", err)
			}
		}
		bs, err := NewBoltStore(m.cfg.BoltPath)
		if err != nil {
			return err
		}
		m.bolt = bs
		m.snapshots = bs
	default:
		m.snapshots = m.store
	}

	var broadcaster Broadcaster
	if deps.Bus != nil {
		broadcaster = NewBusBroadcaster(deps.Bus)
	} else {
		m.logger.Warn("no event bus; snapshots will be persisted but not broadcast")
	}

	publisher := NewPublisher(m.snapshots, broadcaster, m.logger)
	m.engine = NewEngine(m.store, publisher, m.cfg.AgentStaleAfter, m.logger)
	m.scheduler = NewScheduler(m.engine, m.cfg.Interval, m.cfg.CycleTimeout, m.logger)

	m.logger.Info("inventory module initialized",
		zap.Duration("interval", m.cfg.Interval),
		zap.Duration("cycle_timeout", m.cfg.CycleTimeout),
		zap.Duration("agent_stale_after", m.cfg.AgentStaleAfter),
		zap.String("snapshot_store", m.cfg.SnapshotStore),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(ctx context.Context) error {
	m.scheduler.Start(ctx)
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.bolt != nil {
		if err := m.bolt.Close(); err != nil {
			return fmt.Errorf("close bolt store: %w", err)
		}
	}
	return nil
}

// Store returns the source and snapshot tables on the shared database.
func (m *Module) Store() *SQLStore { return m.store }

// Scheduler returns the tenant scheduler.
func (m *Module) Scheduler() *Scheduler { return m.scheduler }

// Snapshots returns the store holding published dashboards.
func (m *Module) Snapshots() SnapshotStore { return m.snapshots }
