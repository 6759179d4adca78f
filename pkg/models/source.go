package models

import "time"

// Tenant is an isolated customer environment. Only active tenants are
// reconciled.
type Tenant struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
}

// AgentRecord is the registry row kept for each installed agent.
type AgentRecord struct {
	TenantID string      `json:"tenant_id" yaml:"-"`
	AgentID  string      `json:"agent_id" yaml:"agent_id"`
	IP       string      `json:"ip" yaml:"ip"` // Last observed connection address
	MAC      string      `json:"mac" yaml:"mac"`
	Status   AgentStatus `json:"status" yaml:"status"`
	LastSeen time.Time   `json:"last_seen" yaml:"last_seen"`
}

// NetInterface is one network interface reported in agent telemetry.
type NetInterface struct {
	Name      string `json:"interface_name,omitempty" yaml:"name"`
	Type      string `json:"type,omitempty" yaml:"type"`
	Address   string `json:"address,omitempty" yaml:"address"`
	Netmask   string `json:"netmask,omitempty" yaml:"netmask"`
	Broadcast string `json:"broadcast,omitempty" yaml:"broadcast"`
}

// Telemetry is the most recent system report of an agent. Agents send it in
// a loose shape, so every field is optional.
type Telemetry struct {
	AgentID      string         `json:"agent_id,omitempty" yaml:"-"`
	Hostname     string         `json:"hostname,omitempty" yaml:"hostname"`
	OS           string         `json:"os_type,omitempty" yaml:"os"`
	IP           string         `json:"ip,omitempty" yaml:"ip"`
	Address      string         `json:"address,omitempty" yaml:"address"`
	MAC          string         `json:"mac,omitempty" yaml:"mac"`
	Interfaces   []NetInterface `json:"wlan_info,omitempty" yaml:"interfaces"`
	InterfaceIPs []NetInterface `json:"wlan_ip,omitempty" yaml:"interface_ips"`
	RecordedAt   time.Time      `json:"-" yaml:"-"`
}

// ScanSighting is a raw network-discovery record for a device seen on a
// tenant's network.
type ScanSighting struct {
	TenantID string    `json:"tenant_id" yaml:"-"`
	IP       string    `json:"ip" yaml:"ip"`
	MAC      string    `json:"mac" yaml:"mac"`
	Vendor   string    `json:"vendor" yaml:"vendor"`
	Hostname string    `json:"hostname" yaml:"hostname"`
	LastSeen time.Time `json:"last_seen" yaml:"last_seen"`
}
