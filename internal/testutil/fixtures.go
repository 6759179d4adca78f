// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
)

// FixedTime is the reference timestamp used by fixtures.
var FixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// NewAgentCandidate returns an online agent candidate on 192.168.1.50.
// Override individual fields with options.
func NewAgentCandidate(opts ...func(*models.DeviceCandidate)) models.DeviceCandidate {
	c := models.DeviceCandidate{
		Source:    models.SourceAgent,
		TenantID:  "acme",
		AgentID:   "agent-1",
		IP:        "192.168.1.50",
		MAC:       "aabbccddee01",
		Hostname:  "workstation-1",
		Vendor:    models.UnknownValue,
		Status:    models.AgentOnline,
		Timestamp: FixedTime,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewScanCandidate returns an unmanaged scanner candidate on 192.168.1.80.
func NewScanCandidate(opts ...func(*models.DeviceCandidate)) models.DeviceCandidate {
	c := models.DeviceCandidate{
		Source:    models.SourceScanner,
		TenantID:  "acme",
		IP:        "192.168.1.80",
		MAC:       "001122334455",
		Hostname:  "printer",
		Vendor:    "Brother",
		Timestamp: FixedTime,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithAgentID sets the candidate's agent ID.
func WithAgentID(id string) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.AgentID = id }
}

// WithIP sets the candidate's IP address.
func WithIP(ip string) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.IP = ip }
}

// WithMAC sets the candidate's normalized MAC.
func WithMAC(mac string) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.MAC = mac }
}

// WithHostname sets the candidate's hostname.
func WithHostname(name string) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.Hostname = name }
}

// WithVendor sets the candidate's vendor.
func WithVendor(vendor string) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.Vendor = vendor }
}

// WithStatus sets the candidate's agent status.
func WithStatus(s models.AgentStatus) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.Status = s }
}

// WithRouter sets the candidate's router flag.
func WithRouter(isRouter bool) func(*models.DeviceCandidate) {
	return func(c *models.DeviceCandidate) { c.IsRouter = isRouter }
}

// NewAgentRecord returns an online agent registry row.
func NewAgentRecord(opts ...func(*models.AgentRecord)) models.AgentRecord {
	a := models.AgentRecord{
		TenantID: "acme",
		AgentID:  "agent-1",
		IP:       "192.168.1.50",
		MAC:      "AA:BB:CC:DD:EE:01",
		Status:   models.AgentOnline,
		LastSeen: FixedTime,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// NewSighting returns a scanner sighting.
func NewSighting(opts ...func(*models.ScanSighting)) models.ScanSighting {
	s := models.ScanSighting{
		TenantID: "acme",
		IP:       "192.168.1.80",
		MAC:      "00-11-22-33-44-55",
		Vendor:   "Brother",
		Hostname: "printer",
		LastSeen: FixedTime,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewTelemetry returns a telemetry report with one wireless interface.
func NewTelemetry(agentID string, opts ...func(*models.Telemetry)) models.Telemetry {
	t := models.Telemetry{
		AgentID:  agentID,
		Hostname: "workstation-1",
		OS:       "linux",
		Interfaces: []models.NetInterface{
			{Name: "wlan0", Type: "wifi", Address: "192.168.1.50", Netmask: "255.255.255.0"},
		},
		RecordedAt: FixedTime,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}
