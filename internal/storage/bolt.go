package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	disputesBucket = []byte("disputes")
	alertsBucket   = []byte("health_alerts")
)

// BoltStore keeps dispute copies and alert history in a single embedded file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file and its buckets.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{disputesBucket, alertsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// UpsertDisputes writes every dispute under tenant/id. Unchanged payloads are skipped.
func (s *BoltStore) UpsertDisputes(ctx context.Context, disputes []StoredDispute) error {
	if len(disputes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(disputesBucket)
		for _, d := range disputes {
			data, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("marshal dispute %s: %w", d.Key(), err)
			}
			key := []byte(d.Key())
			if existing := b.Get(key); existing != nil && sameIgnoringSync(existing, d) {
				continue
			}
			if err := b.Put(key, data); err != nil {
				return fmt.Errorf("put dispute %s: %w", d.Key(), err)
			}
		}
		return nil
	})
}

// sameIgnoringSync reports whether the stored copy differs only by sync time.
func sameIgnoringSync(existing []byte, incoming StoredDispute) bool {
	var prev StoredDispute
	if err := json.Unmarshal(existing, &prev); err != nil {
		return false
	}
	prev.SyncedAt = incoming.SyncedAt
	a, errA := json.Marshal(prev)
	b, errB := json.Marshal(incoming)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// ListRecentDisputes returns up to limit disputes, newest initiation first.
func (s *BoltStore) ListRecentDisputes(ctx context.Context, limit int) ([]StoredDispute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []StoredDispute
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(disputesBucket).ForEach(func(_, v []byte) error {
			var d StoredDispute
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			items = append(items, d)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].InitiatedAt.After(items[j].InitiatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []StoredDispute{}
	}
	return items, nil
}

// InsertHealthAlert appends an alert to the tenant's history.
func (s *BoltStore) InsertHealthAlert(ctx context.Context, alert HealthAlert) (HealthAlert, error) {
	if err := ctx.Err(); err != nil {
		return HealthAlert{}, err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(alertsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		alert.ID = int64(seq)
		if alert.CreatedAt.IsZero() {
			alert.CreatedAt = time.Now().UTC()
		}
		data, err := json.Marshal(alert)
		if err != nil {
			return err
		}
		return b.Put(alertKey(alert.TenantID, seq), data)
	})
	if err != nil {
		return HealthAlert{}, fmt.Errorf("insert health alert: %w", err)
	}
	return alert, nil
}

// LastHealthAlert returns the most recent alert for tenantID, or nil.
func (s *BoltStore) LastHealthAlert(ctx context.Context, tenantID string) (*HealthAlert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last *HealthAlert
	prefix := []byte(tenantID + "/")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(alertsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec HealthAlert
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			last = &rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("last health alert: %w", err)
	}
	return last, nil
}

// alertKey sorts by sequence within a tenant prefix.
func alertKey(tenantID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s/%020d", tenantID, seq))
}

var (
	_ DisputeStore = (*BoltStore)(nil)
	_ AlertStore   = (*BoltStore)(nil)
)
