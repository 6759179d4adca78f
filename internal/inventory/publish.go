package inventory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by snapshot reads when a tenant has no published
// dashboard yet.
var ErrNotFound = errors.New("dashboard not ready")

// SnapshotStore persists the published output of a tenant.
type SnapshotStore interface {
	// SaveSnapshot atomically replaces the tenant's visualizer records and
	// upserts its dashboard document.
	SaveSnapshot(ctx context.Context, snap *models.DashboardSnapshot, records []models.VisualizerRecord) error
	GetDashboard(ctx context.Context, tenantID string) (*models.DashboardSnapshot, error)
	ListVisualizerRecords(ctx context.Context, tenantID string) ([]models.VisualizerRecord, error)
}

// TenantState is the memory a tenant's cycles carry between passes.
type TenantState struct {
	LastHash    string
	Generation  int64
	PublishedAt time.Time
}

// PublishResult describes the outcome of MaybePublish.
type PublishResult struct {
	Changed  bool
	Hash     string
	Snapshot *models.DashboardSnapshot // Nil when unchanged
}

// Publisher persists and broadcasts a tenant's classification when its
// device list differs from the previous publication.
type Publisher struct {
	store       SnapshotStore
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewPublisher creates a Publisher.
func NewPublisher(store SnapshotStore, broadcaster Broadcaster, logger *zap.Logger) *Publisher {
	return &Publisher{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// hashEntry holds the device fields whose change warrants a republish.
type hashEntry struct {
	AgentID  string `json:"agentId"`
	IP       string `json:"ip"`
	MAC      string `json:"mac"`
	Vendor   string `json:"vendor"`
	Hostname string `json:"hostname"`
	NoAgent  bool   `json:"noAgent"`
	IsRouter bool   `json:"isRouter"`
}

// DeviceListHash returns the hex SHA-256 of the ordered device list's
// display fields. Agent status is not part of the hash.
func DeviceListHash(devices []models.CanonicalDevice) (string, error) {
	entries := make([]hashEntry, len(devices))
	for i := range devices {
		d := &devices[i]
		entries[i] = hashEntry{
			AgentID:  d.AgentID,
			IP:       d.IP,
			MAC:      d.MAC,
			Vendor:   d.Vendor,
			Hostname: d.Hostname,
			NoAgent:  d.NoAgent,
			IsRouter: d.IsRouter,
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal device list: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MaybePublish compares the classification against the tenant's last
// published hash. Unchanged lists cause no writes and no broadcasts.
// Otherwise the snapshot is persisted and then broadcast; state is only
// advanced after the persist succeeds. Broadcast failures are logged and
// do not fail the call.
func (p *Publisher) MaybePublish(ctx context.Context, tenantID string, c Classification, state *TenantState) (PublishResult, error) {
	hash, err := DeviceListHash(c.AllDevices)
	if err != nil {
		return PublishResult{}, err
	}
	if state.LastHash != "" && hash == state.LastHash {
		return PublishResult{Hash: hash}, nil
	}

	now := p.now()
	generation := max(state.Generation+1, now.UnixNano())
	snap := &models.DashboardSnapshot{
		TenantID:       tenantID,
		Generation:     generation,
		Timestamp:      now,
		Summary:        c.Summary(),
		AllDevices:     c.AllDevices,
		ActiveAgents:   c.ActiveAgents,
		InactiveAgents: c.InactiveAgents,
		Routers:        c.Routers,
		UnknownDevices: c.UnknownDevices,
	}
	records := p.visualizerRecords(tenantID, c.AllDevices, now)

	if err := p.store.SaveSnapshot(ctx, snap, records); err != nil {
		return PublishResult{Hash: hash}, fmt.Errorf("save snapshot for tenant %s: %w", tenantID, err)
	}

	state.LastHash = hash
	state.Generation = generation
	state.PublishedAt = now

	p.broadcast(ctx, tenantID, EventDashboardUpdate, snap)
	p.broadcast(ctx, tenantID, EventVisualizerRefresh, records)

	return PublishResult{Changed: true, Hash: hash, Snapshot: snap}, nil
}

func (p *Publisher) broadcast(ctx context.Context, tenantID, event string, payload any) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Publish(ctx, tenantID, event, payload); err != nil {
		broadcastFailures.Inc()
		p.logger.Warn("broadcast failed",
			zap.String("tenant_id", tenantID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (p *Publisher) visualizerRecords(tenantID string, devices []models.CanonicalDevice, now time.Time) []models.VisualizerRecord {
	records := make([]models.VisualizerRecord, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		records = append(records, models.VisualizerRecord{
			ID:        p.newID(),
			TenantID:  tenantID,
			AgentID:   d.AgentID,
			IP:        d.IP,
			MAC:       d.MAC,
			Vendor:    d.Vendor,
			Hostname:  d.Hostname,
			NoAgent:   d.NoAgent,
			IsRouter:  d.IsRouter,
			CreatedAt: now,
		})
	}
	return records
}
