package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageDashboardUpdate   MessageType = "dashboard_update"
	MessageVisualizerRefresh MessageType = "visualizer_refresh"
)

// Message is the envelope for all WebSocket messages. Data is the
// dashboard snapshot for dashboard_update and the visualizer record list
// for visualizer_refresh.
type Message struct {
	Type      MessageType `json:"type"`
	TenantID  string      `json:"tenantId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}
