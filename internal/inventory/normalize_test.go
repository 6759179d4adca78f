package inventory

import (
	"slices"
	"testing"

	"github.com/HerbHall/fleetmap/pkg/models"
)

func TestExtractRoutableIPs(t *testing.T) {
	tests := []struct {
		name string
		in   *models.Telemetry
		want []string
	}{
		{name: "nil telemetry", in: nil, want: []string{}},
		{name: "empty telemetry", in: &models.Telemetry{}, want: []string{}},
		{
			name: "primary fields first then interfaces",
			in: &models.Telemetry{
				IP:           "10.0.0.5",
				Address:      "192.168.1.20",
				Interfaces:   []models.NetInterface{{Address: "172.16.4.2"}},
				InterfaceIPs: []models.NetInterface{{Address: "192.168.56.1"}},
			},
			want: []string{"10.0.0.5", "192.168.1.20", "172.16.4.2", "192.168.56.1"},
		},
		{
			name: "loopback link-local and ipv6 dropped",
			in: &models.Telemetry{
				IP: "127.0.0.1",
				Interfaces: []models.NetInterface{
					{Address: "169.254.10.3"},
					{Address: "fe80::1"},
					{Address: ""},
					{Address: "192.168.1.7"},
				},
			},
			want: []string{"192.168.1.7"},
		},
		{
			name: "duplicates kept",
			in: &models.Telemetry{
				IP:         "192.168.1.7",
				Interfaces: []models.NetInterface{{Address: "192.168.1.7"}},
			},
			want: []string{"192.168.1.7", "192.168.1.7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRoutableIPs(tt.in)
			if got == nil {
				t.Fatal("ExtractRoutableIPs returned nil, want non-nil slice")
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractRoutableIPs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"AA:BB:CC:DD:EE:01", "aabbccddee01"},
		{"aa-bb-cc-dd-ee-01", "aabbccddee01"},
		{"AABB.CCDD.EE01", "aabbccddee01"},
		{" aa:bb ", "aabb"},
	}

	for _, tt := range tests {
		if got := NormalizeMAC(tt.in); got != tt.want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if NormalizeMAC("AA:BB:CC:DD:EE:01") != NormalizeMAC("aa-bb-cc-dd-ee-01") {
		t.Error("equivalent MACs should normalize equal")
	}
}

func TestIPValue(t *testing.T) {
	tests := []struct {
		ip   string
		want uint32
	}{
		{"0.0.0.1", 1},
		{"192.168.1.1", 0xC0A80101},
		{"10.0.0.2", 0x0A000002},
		{"unknown", 0},
		{"", 0},
		{"300.1.1.1", 0},
		{"fe80::1", 0},
	}
	for _, tt := range tests {
		if got := ipValue(tt.ip); got != tt.want {
			t.Errorf("ipValue(%q) = %#x, want %#x", tt.ip, got, tt.want)
		}
	}
}

func TestPrefix24(t *testing.T) {
	if p, ok := prefix24("192.168.1.77"); !ok || p != "192.168.1." {
		t.Errorf("prefix24 = %q, %v; want 192.168.1., true", p, ok)
	}
	for _, bad := range []string{"unknown", "", "192.168.1", "::1"} {
		if _, ok := prefix24(bad); ok {
			t.Errorf("prefix24(%q) ok = true, want false", bad)
		}
	}
}
