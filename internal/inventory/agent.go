package inventory

import (
	"strings"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
)

// FormatOptions tunes how agent records become candidates.
type FormatOptions struct {
	// StaleAfter marks an agent offline when its last heartbeat is older
	// than this window, regardless of the registry status. Zero disables it.
	StaleAfter time.Duration
	// Now is the reference time for StaleAfter.
	Now time.Time
}

// ResolveAgentIP picks the LAN address of an agent. The registry address
// wins unless it is loopback or unresolved, in which case the first private
// address reported in telemetry is used.
func ResolveAgentIP(registryIP string, t *models.Telemetry) string {
	ip := strings.TrimSpace(registryIP)
	ip = strings.TrimPrefix(ip, "::ffff:")

	if knownIP(ip) && !strings.HasPrefix(ip, "127.") && ip != "::1" {
		return ip
	}

	for _, candidate := range ExtractRoutableIPs(t) {
		if strings.HasPrefix(candidate, "192.") ||
			strings.HasPrefix(candidate, "10.") ||
			strings.HasPrefix(candidate, "172.") {
			return candidate
		}
	}
	return models.UnknownIP
}

// FormatAgent turns an agent registry row and its latest telemetry (nil when
// none was found) into an agent candidate.
func FormatAgent(tenantID string, rec models.AgentRecord, t *models.Telemetry, opts FormatOptions) models.DeviceCandidate {
	ip := ResolveAgentIP(rec.IP, t)

	mac := NormalizeMAC(rec.MAC)
	hostname := models.UnknownValue
	timestamp := rec.LastSeen
	if t != nil {
		if mac == "" {
			mac = NormalizeMAC(t.MAC)
		}
		if h := strings.TrimSpace(t.Hostname); h != "" {
			hostname = h
		}
		if timestamp.IsZero() {
			timestamp = t.RecordedAt
		}
	}

	status := models.AgentOffline
	if models.AgentStatus(strings.ToLower(string(rec.Status))) == models.AgentOnline {
		status = models.AgentOnline
	}
	if status == models.AgentOnline && opts.StaleAfter > 0 && !rec.LastSeen.IsZero() &&
		opts.Now.Sub(rec.LastSeen) > opts.StaleAfter {
		status = models.AgentOffline
	}

	return models.DeviceCandidate{
		Source:    models.SourceAgent,
		TenantID:  tenantID,
		AgentID:   rec.AgentID,
		IP:        ip,
		MAC:       mac,
		Hostname:  hostname,
		Vendor:    models.UnknownValue,
		Status:    status,
		IsRouter:  IsGateway(ip, hostname, models.UnknownValue),
		Timestamp: timestamp,
	}
}

// ScanCandidate turns a raw scanner sighting into a scanner candidate,
// filling defaults for missing fields.
func ScanCandidate(tenantID string, s models.ScanSighting) models.DeviceCandidate {
	ip := strings.TrimSpace(s.IP)
	if ip == "" {
		ip = models.UnknownIP
	}
	hostname := strings.TrimSpace(s.Hostname)
	if hostname == "" {
		hostname = models.UnknownValue
	}
	vendor := strings.TrimSpace(s.Vendor)
	if vendor == "" {
		vendor = models.UnknownValue
	}

	return models.DeviceCandidate{
		Source:    models.SourceScanner,
		TenantID:  tenantID,
		IP:        ip,
		MAC:       NormalizeMAC(s.MAC),
		Hostname:  hostname,
		Vendor:    vendor,
		IsRouter:  IsGateway(ip, hostname, vendor),
		Timestamp: s.LastSeen,
	}
}
