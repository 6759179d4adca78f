package models

import "time"

// UnknownIP marks an address that could not be resolved.
const UnknownIP = "unknown"

// UnknownValue is the default for hostname and vendor fields.
const UnknownValue = "Unknown"

// DeviceSource identifies which data stream produced a device record.
type DeviceSource string

const (
	SourceAgent   DeviceSource = "agent"
	SourceScanner DeviceSource = "scanner"
)

// AgentStatus is the reported liveness of a monitoring agent.
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
)

// DeviceCandidate is one observation of a device, built fresh each
// reconciliation cycle from an agent record or a scan sighting.
type DeviceCandidate struct {
	Source    DeviceSource `json:"source"`
	TenantID  string       `json:"tenant_id"`
	AgentID   string       `json:"agent_id,omitempty"` // Set only for SourceAgent
	IP        string       `json:"ip"`                 // Dotted quad or UnknownIP
	MAC       string       `json:"mac,omitempty"`      // Normalized: lower-case [a-z0-9]
	Hostname  string       `json:"hostname"`
	Vendor    string       `json:"vendor"`
	Status    AgentStatus  `json:"status,omitempty"` // Meaningful for SourceAgent only
	IsRouter  bool         `json:"is_router"`
	Timestamp time.Time    `json:"timestamp"`
}

// CanonicalDevice is the merged record for one physical device of a tenant
// in a single cycle.
type CanonicalDevice struct {
	Key      string       `json:"key"`
	TenantID string       `json:"tenantId"`
	AgentID  string       `json:"agentId,omitempty"`
	IP       string       `json:"ip"`
	MAC      string       `json:"mac,omitempty"`
	Vendor   string       `json:"vendor"`
	Hostname string       `json:"hostname"`
	Source   DeviceSource `json:"source"`
	Status   AgentStatus  `json:"status,omitempty"`
	NoAgent  bool         `json:"noAgent"`
	IsRouter bool         `json:"isRouter"`
	LastSeen time.Time    `json:"lastSeen"`
}
