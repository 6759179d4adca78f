package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/internal/store"
	"github.com/HerbHall/fleetmap/internal/testutil"
	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestDB creates an in-memory database with the inventory tables.
func setupTestDB(t *testing.T) *inventory.SQLStore {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background(), "inventory", inventory.Migrations()))
	return inventory.NewSQLStore(db)
}

func TestDemo_AppliesAndIsIdempotent(t *testing.T) {
	src := setupTestDB(t)
	ctx := context.Background()

	f, err := Demo()
	require.NoError(t, err)

	counts, err := Apply(ctx, src, f, testutil.FixedTime)
	require.NoError(t, err)
	assert.Equal(t, Counts{Tenants: 3, Agents: 4, Telemetry: 3, Scans: 6}, counts)

	// A second load upserts in place.
	_, err = Apply(ctx, src, f, testutil.FixedTime.Add(time.Minute))
	require.NoError(t, err)

	tenants, err := src.ListActiveTenants(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(tenants))
	for _, tn := range tenants {
		ids = append(ids, tn.ID)
	}
	assert.Equal(t, []string{"acme", "globex"}, ids)

	in, err := src.LoadInputs(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, in.Agents, 3)
	assert.Len(t, in.Scans, 4)
	require.Contains(t, in.Telemetry, "agent-ws-01")
	assert.Equal(t, "ws-01", in.Telemetry["agent-ws-01"].Hostname)
	assert.NotContains(t, in.Telemetry, "agent-laptop")
}

func TestDemo_ReconcilesToExpectedDashboard(t *testing.T) {
	src := setupTestDB(t)
	ctx := context.Background()

	f, err := Demo()
	require.NoError(t, err)
	_, err = Apply(ctx, src, f, time.Now())
	require.NoError(t, err)

	in, err := src.LoadInputs(ctx, "acme")
	require.NoError(t, err)

	engine := inventory.NewEngine(src, nil, 0, zap.NewNop())
	c, err := engine.Classify("acme", in)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.", c.Prefix)
	var ips []string
	for _, d := range c.AllDevices {
		ips = append(ips, d.IP)
	}
	assert.NotContains(t, ips, "10.0.0.77")
	assert.Contains(t, ips, "192.168.1.60", "IPv4-mapped agent address should be unwrapped")

	require.Len(t, c.Routers, 1)
	assert.Equal(t, "192.168.1.1", c.Routers[0].IP)
	assert.Len(t, c.ActiveAgents, 2)
	assert.Len(t, c.InactiveAgents, 1)

	// The scanner saw ws-01 under a dash-separated MAC; it must merge into
	// the agent's device rather than appear twice.
	count := 0
	for _, d := range c.AllDevices {
		if d.IP == "192.168.1.50" {
			count++
			assert.Equal(t, models.SourceAgent, d.Source)
		}
	}
	assert.Equal(t, 1, count)
}

func TestApply_Defaults(t *testing.T) {
	src := setupTestDB(t)
	ctx := context.Background()
	explicit := testutil.FixedTime.Add(-48 * time.Hour)

	f, err := Parse(strings.NewReader(`
tenants:
  - id: t1
    agents:
      - agent_id: a1
        ip: 10.0.0.5
      - agent_id: a2
        ip: 10.0.0.6
        last_seen: ` + explicit.Format(time.RFC3339) + `
    scans:
      - ip: 10.0.0.9
        seen_ago: 1h
`))
	require.NoError(t, err)

	_, err = Apply(ctx, src, f, testutil.FixedTime)
	require.NoError(t, err)

	tenants, err := src.ListActiveTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1, "tenants default to active")

	in, err := src.LoadInputs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, in.Agents, 2)
	byID := map[string]models.AgentRecord{}
	for _, a := range in.Agents {
		byID[a.AgentID] = a
	}
	assert.Equal(t, models.AgentOnline, byID["a1"].Status)
	assert.True(t, byID["a1"].LastSeen.Equal(testutil.FixedTime))
	assert.True(t, byID["a2"].LastSeen.Equal(explicit))

	require.Len(t, in.Scans, 1)
	assert.True(t, in.Scans[0].LastSeen.Equal(testutil.FixedTime.Add(-time.Hour)))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown key", "tenants:\n  - id: a\n    colour: red\n", "colour"},
		{"missing tenant id", "tenants:\n  - name: a\n", "missing id"},
		{"duplicate tenant", "tenants:\n  - id: a\n  - id: a\n", "duplicate id"},
		{"missing agent id", "tenants:\n  - id: a\n    agents:\n      - ip: 10.0.0.1\n", "missing agent_id"},
		{"duplicate agent", "tenants:\n  - id: a\n    agents:\n      - agent_id: x\n      - agent_id: x\n", "duplicate agent_id"},
		{"scan without ip", "tenants:\n  - id: a\n    scans:\n      - mac: aa:bb:cc:dd:ee:ff\n", "missing ip"},
		{"malformed", "tenants: [", "decode fixture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Tenants)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(t.TempDir() + "/nope.yaml")
	assert.Error(t, err)
}
