package inventory

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
	bolt "go.etcd.io/bbolt"
)

// Compile-time interface guard.
var _ SnapshotStore = (*BoltStore)(nil)

var (
	bucketDashboards = []byte("dashboards")
	bucketVisualizer = []byte("visualizer")
)

// BoltStore keeps published snapshots in a BoltDB file: one dashboard
// document per tenant and a nested bucket of visualizer records per tenant,
// keyed by position so iteration preserves IP order.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the snapshot database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDashboards, bucketVisualizer} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the tenant's records and dashboard in one update
// transaction.
func (s *BoltStore) SaveSnapshot(_ context.Context, snap *models.DashboardSnapshot, records []models.VisualizerRecord) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}
	tenant := []byte(snap.TenantID)

	return s.db.Update(func(tx *bolt.Tx) error {
		vis := tx.Bucket(bucketVisualizer)
		if vis == nil {
			return fmt.Errorf("bucket %q not found", bucketVisualizer)
		}
		if err := vis.DeleteBucket(tenant); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("clear visualizer records: %w", err)
		}
		tb, err := vis.CreateBucket(tenant)
		if err != nil {
			return fmt.Errorf("create tenant bucket: %w", err)
		}
		for i := range records {
			data, err := json.Marshal(&records[i])
			if err != nil {
				return err
			}
			if err := tb.Put(positionKey(i), data); err != nil {
				return err
			}
		}

		dash := tx.Bucket(bucketDashboards)
		if dash == nil {
			return fmt.Errorf("bucket %q not found", bucketDashboards)
		}
		return dash.Put(tenant, doc)
	})
}

// GetDashboard returns the tenant's live dashboard or ErrNotFound.
func (s *BoltStore) GetDashboard(_ context.Context, tenantID string) (*models.DashboardSnapshot, error) {
	var snap models.DashboardSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDashboards)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDashboards)
		}
		data := b.Get([]byte(tenantID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListVisualizerRecords returns the tenant's records in IP order.
func (s *BoltStore) ListVisualizerRecords(_ context.Context, tenantID string) ([]models.VisualizerRecord, error) {
	records := []models.VisualizerRecord{}
	err := s.db.View(func(tx *bolt.Tx) error {
		vis := tx.Bucket(bucketVisualizer)
		if vis == nil {
			return nil
		}
		tb := vis.Bucket([]byte(tenantID))
		if tb == nil {
			return nil
		}
		return tb.ForEach(func(_, v []byte) error {
			var r models.VisualizerRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	return records, err
}

// positionKey encodes i big-endian so byte order matches numeric order.
func positionKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}
