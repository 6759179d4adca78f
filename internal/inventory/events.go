package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/HerbHall/fleetmap/pkg/plugin"
)

// Event names delivered to tenant subscribers.
const (
	EventDashboardUpdate   = "dashboard_update"
	EventVisualizerRefresh = "visualizer_refresh"
)

// Event bus topics carrying TenantEvent payloads.
const (
	TopicPrefix            = "inventory."
	TopicDashboardUpdate   = TopicPrefix + EventDashboardUpdate
	TopicVisualizerRefresh = TopicPrefix + EventVisualizerRefresh
)

// TenantEvent is the bus payload for inventory publications. Delivery
// adapters must route it to TenantID's subscribers only.
type TenantEvent struct {
	TenantID string `json:"tenantId"`
	Event    string `json:"event"`
	Payload  any    `json:"payload"`
}

// Broadcaster delivers a named event to the subscribers of one tenant.
type Broadcaster interface {
	Publish(ctx context.Context, tenantID, eventName string, payload any) error
}

// BusBroadcaster publishes tenant events on the event bus under
// "inventory.<event name>" for the WebSocket, MQTT and NATS adapters.
type BusBroadcaster struct {
	bus plugin.Publisher
}

// NewBusBroadcaster creates a Broadcaster backed by the event bus.
func NewBusBroadcaster(bus plugin.Publisher) *BusBroadcaster {
	return &BusBroadcaster{bus: bus}
}

// Publish implements Broadcaster.
func (b *BusBroadcaster) Publish(ctx context.Context, tenantID, eventName string, payload any) error {
	if tenantID == "" {
		return errors.New("broadcast without tenant")
	}
	return b.bus.Publish(ctx, plugin.Event{
		Topic:     TopicPrefix + eventName,
		Source:    "inventory",
		Timestamp: time.Now().UTC(),
		Payload: TenantEvent{
			TenantID: tenantID,
			Event:    eventName,
			Payload:  payload,
		},
	})
}
