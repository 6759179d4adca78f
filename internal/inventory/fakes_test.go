package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/HerbHall/fleetmap/pkg/models"
)

// fakeSource serves fixed inputs per tenant.
type fakeSource struct {
	mu      sync.Mutex
	tenants []models.Tenant
	inputs  map[string]*Inputs
	loadErr map[string]error
	loads   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		inputs:  make(map[string]*Inputs),
		loadErr: make(map[string]error),
	}
}

func (f *fakeSource) setTenant(id string, in *Inputs) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants = append(f.tenants, models.Tenant{ID: id, Name: id, Active: true})
	f.inputs[id] = in
}

func (f *fakeSource) ListActiveTenants(_ context.Context) ([]models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) LoadInputs(_ context.Context, tenantID string) (*Inputs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if err := f.loadErr[tenantID]; err != nil {
		return nil, err
	}
	in, ok := f.inputs[tenantID]
	if !ok {
		return &Inputs{}, nil
	}
	return in, nil
}

// countingStore is an in-memory SnapshotStore that counts writes.
type countingStore struct {
	mu        sync.Mutex
	saves     int
	failSave  error
	snapshots map[string]*models.DashboardSnapshot
	records   map[string][]models.VisualizerRecord
}

func newCountingStore() *countingStore {
	return &countingStore{
		snapshots: make(map[string]*models.DashboardSnapshot),
		records:   make(map[string][]models.VisualizerRecord),
	}
}

func (s *countingStore) SaveSnapshot(_ context.Context, snap *models.DashboardSnapshot, records []models.VisualizerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.saves++
	s.snapshots[snap.TenantID] = snap
	s.records[snap.TenantID] = records
	return nil
}

func (s *countingStore) GetDashboard(_ context.Context, tenantID string) (*models.DashboardSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return snap, nil
}

func (s *countingStore) ListVisualizerRecords(_ context.Context, tenantID string) ([]models.VisualizerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[tenantID], nil
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type sentEvent struct {
	tenantID string
	event    string
	payload  any
}

// recordingBroadcaster captures every publish and can be told to fail.
type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sentEvent
	fail bool
}

func (b *recordingBroadcaster) Publish(_ context.Context, tenantID, eventName string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentEvent{tenantID: tenantID, event: eventName, payload: payload})
	if b.fail {
		return errors.New("subscriber gone")
	}
	return nil
}

func (b *recordingBroadcaster) events() []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentEvent(nil), b.sent...)
}
