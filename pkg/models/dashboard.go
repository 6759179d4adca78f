package models

import "time"

// DashboardSummary holds the per-bucket device counts of a snapshot.
type DashboardSummary struct {
	All      int `json:"all"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Unknown  int `json:"unknown"`
	Routers  int `json:"routers"`
}

// DashboardSnapshot is the single live dashboard document of a tenant.
// Device slices are ordered by ascending IP.
type DashboardSnapshot struct {
	TenantID       string            `json:"tenantId"`
	Generation     int64             `json:"generation"`
	Timestamp      time.Time         `json:"timestamp"`
	Summary        DashboardSummary  `json:"summary"`
	AllDevices     []CanonicalDevice `json:"allDevices"`
	ActiveAgents   []CanonicalDevice `json:"activeAgents"`
	InactiveAgents []CanonicalDevice `json:"inactiveAgents"`
	Routers        []CanonicalDevice `json:"routers"`
	UnknownDevices []CanonicalDevice `json:"unknownDevices"`
}

// VisualizerRecord is the denormalized per-device row read by the
// visualization endpoint.
type VisualizerRecord struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	AgentID   string    `json:"agentId"`
	IP        string    `json:"ip"`
	MAC       string    `json:"mac"`
	Vendor    string    `json:"vendor"`
	Hostname  string    `json:"hostname"`
	NoAgent   bool      `json:"noAgent"`
	IsRouter  bool      `json:"isRouter"`
	CreatedAt time.Time `json:"createdAt"`
}
