package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/samvad-pulse/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const sampleBucket = "samples"

// boltStore implements a Store backed by BoltDB. Values are JSON-encoded
// samples keyed by target id; retention is driven by each sample's
// checked_at timestamp.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	sampleTTL       time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sampleBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		sampleTTL:       opts.SampleTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LastSample returns the most recent sample recorded for the target, if
// any non-expired one exists.
func (b *boltStore) LastSample(targetID string) (domain.Sample, bool, error) {
	if b == nil || b.db == nil {
		return domain.Sample{}, false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return domain.Sample{}, false, err
	}

	var (
		sample domain.Sample
		found  bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sampleBucket))
		if bucket == nil {
			return fmt.Errorf("sample bucket missing")
		}

		key := []byte(targetID)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		decoded, ok := decodeSample(value)
		if !ok || b.expired(decoded, time.Now()) {
			return bucket.Delete(key)
		}

		sample = decoded
		found = true
		return nil
	})
	return sample, found, err
}

// RecordSample stores the sample as the target's latest observation.
func (b *boltStore) RecordSample(sample domain.Sample) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if sample.CheckedAt.IsZero() {
		sample.CheckedAt = now
	}
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	value, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sampleBucket))
		if bucket == nil {
			return fmt.Errorf("sample bucket missing")
		}
		return bucket.Put([]byte(sample.TargetID), value)
	})
}

// maybeCleanupExpired removes stale samples on a fixed cadence to avoid
// unbounded growth when targets are removed from the registry.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sampleBucket))
		if bucket == nil {
			return fmt.Errorf("sample bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			sample, ok := decodeSample(v)
			if !ok || b.expired(sample, now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func (b *boltStore) expired(sample domain.Sample, now time.Time) bool {
	return !sample.CheckedAt.Add(b.sampleTTL).After(now)
}

// decodeSample decodes a stored sample value.
func decodeSample(value []byte) (domain.Sample, bool) {
	var sample domain.Sample
	if err := json.Unmarshal(value, &sample); err != nil {
		return domain.Sample{}, false
	}
	if sample.TargetID == "" || sample.CheckedAt.IsZero() {
		return domain.Sample{}, false
	}
	return sample, true
}
