// Package seed loads tenants, agents, telemetry and scanner sightings from
// a YAML fixture into the inventory source tables. Loading is idempotent:
// agents, tenants and sightings are upserted; each load appends one
// telemetry report per agent, which becomes the agent's latest.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoFixture []byte

// Writer is the set of source-table writers a fixture is applied through.
// *inventory.SQLStore satisfies it.
type Writer interface {
	UpsertTenant(ctx context.Context, t models.Tenant) error
	UpsertAgent(ctx context.Context, a models.AgentRecord) error
	RecordTelemetry(ctx context.Context, tenantID string, t models.Telemetry) error
	UpsertScanSighting(ctx context.Context, sc models.ScanSighting) error
}

// Fixture is the top-level YAML document.
type Fixture struct {
	Tenants []TenantFixture `yaml:"tenants"`
}

// TenantFixture describes one tenant and everything observed on its network.
type TenantFixture struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Active *bool          `yaml:"active"` // Defaults to true
	Agents []AgentFixture `yaml:"agents"`
	Scans  []ScanFixture  `yaml:"scans"`
}

// AgentFixture is an agent registry row plus its latest telemetry report.
// SeenAgo, when set, places LastSeen relative to load time.
type AgentFixture struct {
	models.AgentRecord `yaml:",inline"`
	SeenAgo            time.Duration     `yaml:"seen_ago"`
	Telemetry          *models.Telemetry `yaml:"telemetry"`
}

// ScanFixture is a scanner sighting. SeenAgo behaves as for agents.
type ScanFixture struct {
	models.ScanSighting `yaml:",inline"`
	SeenAgo             time.Duration `yaml:"seen_ago"`
}

// Counts reports how many rows a load wrote.
type Counts struct {
	Tenants   int
	Agents    int
	Telemetry int
	Scans     int
}

// Parse decodes and validates a fixture. Unknown keys are rejected so
// typos surface instead of silently seeding defaults.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseFile reads and parses the fixture at path.
func ParseFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Demo returns the built-in demo fixture: two tenants with a mix of agents,
// a gateway and scanner-only devices, including one outside the subnet.
func Demo() (*Fixture, error) {
	return Parse(bytes.NewReader(demoFixture))
}

// Validate checks identities the source tables key on.
func (f *Fixture) Validate() error {
	seen := make(map[string]bool, len(f.Tenants))
	for i, t := range f.Tenants {
		if t.ID == "" {
			return fmt.Errorf("tenant %d: missing id", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tenant %s: duplicate id", t.ID)
		}
		seen[t.ID] = true

		agents := make(map[string]bool, len(t.Agents))
		for j, a := range t.Agents {
			if a.AgentID == "" {
				return fmt.Errorf("tenant %s agent %d: missing agent_id", t.ID, j)
			}
			if agents[a.AgentID] {
				return fmt.Errorf("tenant %s agent %s: duplicate agent_id", t.ID, a.AgentID)
			}
			agents[a.AgentID] = true
		}
		for j, sc := range t.Scans {
			if sc.IP == "" {
				return fmt.Errorf("tenant %s scan %d: missing ip", t.ID, j)
			}
		}
	}
	return nil
}

// Apply writes the fixture through w. now anchors SeenAgo offsets and
// defaults unset timestamps.
func Apply(ctx context.Context, w Writer, f *Fixture, now time.Time) (Counts, error) {
	var c Counts
	for _, t := range f.Tenants {
		active := t.Active == nil || *t.Active
		if err := w.UpsertTenant(ctx, models.Tenant{ID: t.ID, Name: t.Name, Active: active}); err != nil {
			return c, fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
		c.Tenants++

		for _, a := range t.Agents {
			rec := a.AgentRecord
			rec.TenantID = t.ID
			rec.LastSeen = stamp(rec.LastSeen, a.SeenAgo, now)
			if rec.Status == "" {
				rec.Status = models.AgentOnline
			}
			if err := w.UpsertAgent(ctx, rec); err != nil {
				return c, fmt.Errorf("seed agent %s/%s: %w", t.ID, rec.AgentID, err)
			}
			c.Agents++

			if a.Telemetry == nil {
				continue
			}
			tel := *a.Telemetry
			tel.AgentID = rec.AgentID
			tel.RecordedAt = now
			if err := w.RecordTelemetry(ctx, t.ID, tel); err != nil {
				return c, fmt.Errorf("seed telemetry %s/%s: %w", t.ID, rec.AgentID, err)
			}
			c.Telemetry++
		}

		for _, s := range t.Scans {
			sc := s.ScanSighting
			sc.TenantID = t.ID
			sc.LastSeen = stamp(sc.LastSeen, s.SeenAgo, now)
			if err := w.UpsertScanSighting(ctx, sc); err != nil {
				return c, fmt.Errorf("seed sighting %s/%s: %w", t.ID, sc.IP, err)
			}
			c.Scans++
		}
	}
	return c, nil
}

func stamp(explicit time.Time, ago time.Duration, now time.Time) time.Time {
	switch {
	case ago > 0:
		return now.Add(-ago)
	case explicit.IsZero():
		return now
	default:
		return explicit
	}
}
