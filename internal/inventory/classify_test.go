package inventory

import (
	"testing"

	"github.com/HerbHall/fleetmap/internal/testutil"
	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ips(devices []models.CanonicalDevice) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.IP)
	}
	return out
}

func TestClassify_Buckets(t *testing.T) {
	agents := []models.DeviceCandidate{
		testutil.NewAgentCandidate(testutil.WithIP("192.168.1.50")),
		testutil.NewAgentCandidate(
			testutil.WithAgentID("agent-2"),
			testutil.WithIP("192.168.1.9"),
			testutil.WithMAC("aabbccddee02"),
			testutil.WithStatus(models.AgentOffline),
		),
		testutil.NewAgentCandidate(
			testutil.WithAgentID("agent-3"),
			testutil.WithIP("192.168.1.2"),
			testutil.WithMAC("aabbccddee03"),
			testutil.WithRouter(true),
		),
	}
	scans := []models.DeviceCandidate{
		testutil.NewScanCandidate(testutil.WithIP("192.168.1.1"), testutil.WithMAC("f0f0f0f0f0f0"), testutil.WithRouter(true)),
		testutil.NewScanCandidate(testutil.WithIP("192.168.1.200"), testutil.WithMAC("0a0a0a0a0a0a")),
		testutil.NewScanCandidate(testutil.WithIP("192.168.1.10"), testutil.WithMAC("0b0b0b0b0b0b")),
	}

	devices, err := Reconcile(agents, scans)
	require.NoError(t, err)
	prefix, ok := DetectSubnetPrefix(devices, agents)
	require.True(t, ok)

	c := Classify(devices, prefix, ok)

	assert.Equal(t, "192.168.1.", c.Prefix)
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2", "192.168.1.9", "192.168.1.10", "192.168.1.50", "192.168.1.200"}, ips(c.AllDevices))
	assert.Equal(t, []string{"192.168.1.2", "192.168.1.50"}, ips(c.ActiveAgents), "online agents, routers included")
	assert.Equal(t, []string{"192.168.1.9"}, ips(c.InactiveAgents))
	assert.Equal(t, []string{"192.168.1.1"}, ips(c.Routers), "router bucket holds scanner devices only")
	assert.Equal(t, []string{"192.168.1.10", "192.168.1.200"}, ips(c.UnknownDevices))

	s := c.Summary()
	assert.Equal(t, models.DashboardSummary{All: 6, Active: 2, Inactive: 1, Unknown: 2, Routers: 1}, s)
	assert.Equal(t, s.All, s.Active+s.Inactive+s.Unknown+s.Routers)
}

func TestClassify_FiltersOutsideSubnet(t *testing.T) {
	scans := []models.DeviceCandidate{
		testutil.NewScanCandidate(testutil.WithIP("192.168.1.1"), testutil.WithMAC(""), testutil.WithRouter(true)),
		testutil.NewScanCandidate(testutil.WithIP("10.0.0.77"), testutil.WithMAC("")),
		testutil.NewScanCandidate(testutil.WithIP(models.UnknownIP), testutil.WithMAC("abababababab")),
	}

	devices, err := Reconcile(nil, scans)
	require.NoError(t, err)
	require.Equal(t, 3, devices.Len())

	c := Classify(devices, "192.168.1.", true)
	assert.Equal(t, []string{"192.168.1.1"}, ips(c.AllDevices))
}

func TestClassify_NoPrefixKeepsEverything(t *testing.T) {
	scans := []models.DeviceCandidate{
		testutil.NewScanCandidate(testutil.WithIP("10.0.0.77"), testutil.WithMAC("")),
		testutil.NewScanCandidate(testutil.WithIP(models.UnknownIP), testutil.WithMAC("abababababab")),
		testutil.NewScanCandidate(testutil.WithIP("10.0.0.5"), testutil.WithMAC("")),
	}

	devices, err := Reconcile(nil, scans)
	require.NoError(t, err)

	c := Classify(devices, "ignored.", false)
	assert.Empty(t, c.Prefix)
	assert.Equal(t, []string{models.UnknownIP, "10.0.0.5", "10.0.0.77"}, ips(c.AllDevices), "unparseable addresses sort first")
}

func TestClassify_EmptyBucketsAreNonNil(t *testing.T) {
	c := Classify(nil, "", false)
	assert.NotNil(t, c.AllDevices)
	assert.NotNil(t, c.ActiveAgents)
	assert.NotNil(t, c.InactiveAgents)
	assert.NotNil(t, c.Routers)
	assert.NotNil(t, c.UnknownDevices)
	assert.Equal(t, models.DashboardSummary{}, c.Summary())
}
