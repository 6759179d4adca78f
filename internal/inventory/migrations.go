package inventory

import (
	"database/sql"

	"github.com/HerbHall/fleetmap/pkg/plugin"
)

// Migrations returns the inventory module's database migrations.
func Migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create inventory source tables (tenants, agents, telemetry, scan sightings)",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE inventory_tenants (
						id         TEXT PRIMARY KEY,
						name       TEXT NOT NULL DEFAULT '',
						active     INTEGER NOT NULL DEFAULT 1,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE inventory_agents (
						tenant_id TEXT NOT NULL REFERENCES inventory_tenants(id) ON DELETE CASCADE,
						agent_id  TEXT NOT NULL,
						ip        TEXT NOT NULL DEFAULT '',
						mac       TEXT NOT NULL DEFAULT '',
						status    TEXT NOT NULL DEFAULT 'offline',
						last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (tenant_id, agent_id)
					)`,
					`CREATE TABLE inventory_telemetry (
						id          INTEGER PRIMARY KEY AUTOINCREMENT,
						tenant_id   TEXT NOT NULL REFERENCES inventory_tenants(id) ON DELETE CASCADE,
						agent_id    TEXT NOT NULL,
						data        TEXT NOT NULL DEFAULT '{}',
						recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX idx_inventory_telemetry_agent ON inventory_telemetry(tenant_id, agent_id, recorded_at)`,
					`CREATE TABLE inventory_scan_sightings (
						tenant_id TEXT NOT NULL REFERENCES inventory_tenants(id) ON DELETE CASCADE,
						ip        TEXT NOT NULL,
						mac       TEXT NOT NULL DEFAULT '',
						vendor    TEXT NOT NULL DEFAULT '',
						hostname  TEXT NOT NULL DEFAULT '',
						last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (tenant_id, ip)
					)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "create inventory output tables (dashboards, visualizer records)",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE inventory_dashboards (
						tenant_id  TEXT PRIMARY KEY,
						generation INTEGER NOT NULL,
						timestamp  DATETIME NOT NULL,
						document   TEXT NOT NULL
					)`,
					`CREATE TABLE inventory_visualizer_records (
						id         TEXT PRIMARY KEY,
						tenant_id  TEXT NOT NULL,
						agent_id   TEXT NOT NULL DEFAULT '',
						ip         TEXT NOT NULL DEFAULT '',
						mac        TEXT NOT NULL DEFAULT '',
						vendor     TEXT NOT NULL DEFAULT '',
						hostname   TEXT NOT NULL DEFAULT '',
						no_agent   INTEGER NOT NULL DEFAULT 0,
						is_router  INTEGER NOT NULL DEFAULT 0,
						created_at DATETIME NOT NULL
					)`,
					`CREATE INDEX idx_inventory_visualizer_tenant ON inventory_visualizer_records(tenant_id)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
