package inventory

import (
	"fmt"
	"time"
)

// Snapshot store backends.
const (
	SnapshotStoreSQLite = "sqlite"
	SnapshotStoreBolt   = "bolt"
)

// Config holds the inventory engine configuration.
type Config struct {
	Interval        time.Duration `mapstructure:"interval"`
	CycleTimeout    time.Duration `mapstructure:"cycle_timeout"`
	AgentStaleAfter time.Duration `mapstructure:"agent_stale_after"` // 0 trusts the registry status
	SnapshotStore   string        `mapstructure:"snapshot_store"`    // "sqlite" or "bolt"
	BoltPath        string        `mapstructure:"bolt_path"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      DefaultInterval,
		CycleTimeout:  DefaultCycleTimeout,
		SnapshotStore: SnapshotStoreSQLite,
		BoltPath:      "./data/snapshots.bolt",
	}
}

// Validate reports configuration the engine cannot run with.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.CycleTimeout <= 0 {
		return fmt.Errorf("cycle_timeout must be positive, got %s", c.CycleTimeout)
	}
	if c.AgentStaleAfter < 0 {
		return fmt.Errorf("agent_stale_after must not be negative, got %s", c.AgentStaleAfter)
	}
	switch c.SnapshotStore {
	case SnapshotStoreSQLite:
	case SnapshotStoreBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("bolt_path is required when snapshot_store is %q", SnapshotStoreBolt)
		}
	default:
		return fmt.Errorf("unknown snapshot_store %q", c.SnapshotStore)
	}
	return nil
}
