package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
	"go.uber.org/zap"
)

// Inputs is one consistent read of a tenant's collaborator data.
type Inputs struct {
	Agents    []models.AgentRecord
	Telemetry map[string]*models.Telemetry // Latest report keyed by agent ID
	Scans     []models.ScanSighting
}

// SourceStore reads the collaborator data the engine reconciles.
type SourceStore interface {
	ListActiveTenants(ctx context.Context) ([]models.Tenant, error)
	// LoadInputs reads agents, telemetry and sightings of one tenant in a
	// single read transaction.
	LoadInputs(ctx context.Context, tenantID string) (*Inputs, error)
}

// Engine runs the reconciliation pipeline for one tenant at a time.
type Engine struct {
	source     SourceStore
	publisher  *Publisher
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an Engine. staleAfter is the optional agent heartbeat
// window; zero trusts the registry status.
func NewEngine(source SourceStore, publisher *Publisher, staleAfter time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		source:     source,
		publisher:  publisher,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// ActiveTenants returns the IDs of the tenants to reconcile.
func (e *Engine) ActiveTenants(ctx context.Context) ([]string, error) {
	tenants, err := e.source.ListActiveTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// Classify builds the tenant's current classification from inputs without
// publishing it.
func (e *Engine) Classify(tenantID string, in *Inputs) (Classification, error) {
	opts := FormatOptions{StaleAfter: e.staleAfter, Now: e.now()}

	agents := make([]models.DeviceCandidate, 0, len(in.Agents))
	for _, rec := range in.Agents {
		agents = append(agents, FormatAgent(tenantID, rec, in.Telemetry[rec.AgentID], opts))
	}
	scans := make([]models.DeviceCandidate, 0, len(in.Scans))
	for _, s := range in.Scans {
		scans = append(scans, ScanCandidate(tenantID, s))
	}

	devices, err := Reconcile(agents, scans)
	if err != nil {
		return Classification{}, fmt.Errorf("reconcile tenant %s: %w", tenantID, err)
	}
	for _, sup := range devices.Superseded() {
		e.logger.Warn("agents share a device identity, keeping the fresher one",
			zap.String("tenant_id", tenantID),
			zap.String("key", sup.Key),
			zap.String("kept_agent", sup.Kept),
			zap.String("dropped_agent", sup.Dropped),
		)
	}
	prefix, ok := DetectSubnetPrefix(devices, agents)
	return Classify(devices, prefix, ok), nil
}

// RunCycle reads the tenant's inputs, reconciles and classifies them, and
// publishes the result if it changed.
func (e *Engine) RunCycle(ctx context.Context, tenantID string, state *TenantState) (PublishResult, error) {
	in, err := e.source.LoadInputs(ctx, tenantID)
	if err != nil {
		return PublishResult{}, fmt.Errorf("load inputs for tenant %s: %w", tenantID, err)
	}

	c, err := e.Classify(tenantID, in)
	if err != nil {
		return PublishResult{}, err
	}

	res, err := e.publisher.MaybePublish(ctx, tenantID, c, state)
	if err != nil {
		return res, err
	}
	if res.Changed {
		observeSummary(tenantID, c)
		e.logger.Info("dashboard published",
			zap.String("tenant_id", tenantID),
			zap.Int64("generation", res.Snapshot.Generation),
			zap.String("subnet", c.Prefix),
			zap.Int("devices", len(c.AllDevices)),
		)
	}
	return res, nil
}
