package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/HerbHall/fleetmap/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ SourceStore   = (*SQLStore)(nil)
	_ SnapshotStore = (*SQLStore)(nil)
)

// SQLStore keeps the inventory tables in the shared SQLite database. It
// reads collaborator data and stores published snapshots.
type SQLStore struct {
	store plugin.Store
}

// NewSQLStore creates a SQLStore on the shared database. Migrations must
// have been applied.
func NewSQLStore(store plugin.Store) *SQLStore {
	return &SQLStore{store: store}
}

// ListActiveTenants returns the tenants flagged active, ordered by ID.
func (s *SQLStore) ListActiveTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		"SELECT id, name, active FROM inventory_tenants WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// LoadInputs reads a tenant's agents, their latest telemetry and its scan
// sightings inside one transaction.
func (s *SQLStore) LoadInputs(ctx context.Context, tenantID string) (*Inputs, error) {
	in := &Inputs{Telemetry: make(map[string]*models.Telemetry)}
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		if in.Agents, err = loadAgents(ctx, tx, tenantID); err != nil {
			return err
		}
		if err = loadLatestTelemetry(ctx, tx, tenantID, in.Telemetry); err != nil {
			return err
		}
		in.Scans, err = loadScans(ctx, tx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

func loadAgents(ctx context.Context, tx *sql.Tx, tenantID string) ([]models.AgentRecord, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT agent_id, ip, mac, status, last_seen
		FROM inventory_agents WHERE tenant_id = ? ORDER BY agent_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var agents []models.AgentRecord
	for rows.Next() {
		a := models.AgentRecord{TenantID: tenantID}
		var status string
		if err := rows.Scan(&a.AgentID, &a.IP, &a.MAC, &status, &a.LastSeen); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.Status = models.AgentStatus(status)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// loadLatestTelemetry keeps the newest report of each agent. A report that
// does not decode is skipped so the agent falls back to defaults.
func loadLatestTelemetry(ctx context.Context, tx *sql.Tx, tenantID string, out map[string]*models.Telemetry) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT agent_id, data, recorded_at
		FROM inventory_telemetry WHERE tenant_id = ?
		ORDER BY agent_id, recorded_at DESC, id DESC`, tenantID)
	if err != nil {
		return fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			agentID    string
			data       string
			recordedAt time.Time
		)
		if err := rows.Scan(&agentID, &data, &recordedAt); err != nil {
			return fmt.Errorf("scan telemetry: %w", err)
		}
		if _, seen := out[agentID]; seen {
			continue
		}
		var t models.Telemetry
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			out[agentID] = nil
			continue
		}
		t.AgentID = agentID
		t.RecordedAt = recordedAt
		out[agentID] = &t
	}
	return rows.Err()
}

func loadScans(ctx context.Context, tx *sql.Tx, tenantID string) ([]models.ScanSighting, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ip, mac, vendor, hostname, last_seen
		FROM inventory_scan_sightings WHERE tenant_id = ? ORDER BY rowid`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query scan sightings: %w", err)
	}
	defer rows.Close()

	var scans []models.ScanSighting
	for rows.Next() {
		sc := models.ScanSighting{TenantID: tenantID}
		if err := rows.Scan(&sc.IP, &sc.MAC, &sc.Vendor, &sc.Hostname, &sc.LastSeen); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// UpsertTenant inserts or updates a tenant.
func (s *SQLStore) UpsertTenant(ctx context.Context, t models.Tenant) error {
	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO inventory_tenants (id, name, active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active`,
		t.ID, t.Name, t.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant %s: %w", t.ID, err)
	}
	return nil
}

// UpsertAgent records an agent heartbeat.
func (s *SQLStore) UpsertAgent(ctx context.Context, a models.AgentRecord) error {
	lastSeen := a.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}
	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO inventory_agents (tenant_id, agent_id, ip, mac, status, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, agent_id) DO UPDATE SET
			ip = excluded.ip, mac = excluded.mac,
			status = excluded.status, last_seen = excluded.last_seen`,
		a.TenantID, a.AgentID, a.IP, a.MAC, string(a.Status), lastSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert agent %s/%s: %w", a.TenantID, a.AgentID, err)
	}
	return nil
}

// RecordTelemetry appends a telemetry report for an agent.
func (s *SQLStore) RecordTelemetry(ctx context.Context, tenantID string, t models.Telemetry) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	recordedAt := t.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err = s.store.DB().ExecContext(ctx,
		"INSERT INTO inventory_telemetry (tenant_id, agent_id, data, recorded_at) VALUES (?, ?, ?, ?)",
		tenantID, t.AgentID, string(data), recordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert telemetry %s/%s: %w", tenantID, t.AgentID, err)
	}
	return nil
}

// UpsertScanSighting records a scanner sighting keyed by tenant and IP.
func (s *SQLStore) UpsertScanSighting(ctx context.Context, sc models.ScanSighting) error {
	lastSeen := sc.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}
	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO inventory_scan_sightings (tenant_id, ip, mac, vendor, hostname, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, ip) DO UPDATE SET
			mac = excluded.mac, vendor = excluded.vendor,
			hostname = excluded.hostname, last_seen = excluded.last_seen`,
		sc.TenantID, sc.IP, sc.MAC, sc.Vendor, sc.Hostname, lastSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert sighting %s/%s: %w", sc.TenantID, sc.IP, err)
	}
	return nil
}

// SaveSnapshot replaces the tenant's visualizer records and upserts its
// dashboard in one transaction.
func (s *SQLStore) SaveSnapshot(ctx context.Context, snap *models.DashboardSnapshot, records []models.VisualizerRecord) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}

	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM inventory_visualizer_records WHERE tenant_id = ?", snap.TenantID); err != nil {
			return fmt.Errorf("clear visualizer records: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO inventory_visualizer_records
				(id, tenant_id, agent_id, ip, mac, vendor, hostname, no_agent, is_router, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare visualizer insert: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			r := &records[i]
			if _, err := stmt.ExecContext(ctx, r.ID, r.TenantID, r.AgentID, r.IP, r.MAC,
				r.Vendor, r.Hostname, r.NoAgent, r.IsRouter, r.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("insert visualizer record: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_dashboards (tenant_id, generation, timestamp, document)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(tenant_id) DO UPDATE SET
				generation = excluded.generation, timestamp = excluded.timestamp,
				document = excluded.document`,
			snap.TenantID, snap.Generation, snap.Timestamp.UTC(), string(doc)); err != nil {
			return fmt.Errorf("upsert dashboard: %w", err)
		}
		return nil
	})
}

// GetDashboard returns the tenant's live dashboard or ErrNotFound.
func (s *SQLStore) GetDashboard(ctx context.Context, tenantID string) (*models.DashboardSnapshot, error) {
	var doc string
	err := s.store.DB().QueryRowContext(ctx,
		"SELECT document FROM inventory_dashboards WHERE tenant_id = ?", tenantID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query dashboard: %w", err)
	}

	var snap models.DashboardSnapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	return &snap, nil
}

// ListVisualizerRecords returns the tenant's records in IP order.
func (s *SQLStore) ListVisualizerRecords(ctx context.Context, tenantID string) ([]models.VisualizerRecord, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, tenant_id, agent_id, ip, mac, vendor, hostname, no_agent, is_router, created_at
		FROM inventory_visualizer_records WHERE tenant_id = ? ORDER BY rowid`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query visualizer records: %w", err)
	}
	defer rows.Close()

	records := []models.VisualizerRecord{}
	for rows.Next() {
		var r models.VisualizerRecord
		if err := rows.Scan(&r.ID, &r.TenantID, &r.AgentID, &r.IP, &r.MAC, &r.Vendor,
			&r.Hostname, &r.NoAgent, &r.IsRouter, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan visualizer record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
