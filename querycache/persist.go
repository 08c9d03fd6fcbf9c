package querycache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var queriesBucket = []byte("queries")

// BoltPersister stores snapshots in a bbolt file so a later session can
// hydrate from them.
type BoltPersister struct {
	db     *bolt.DB
	maxAge time.Duration
	now    func() time.Time
}

// OpenBoltPersister opens (or creates) the database at path. Entries older
// than maxAge are skipped on Load; zero keeps everything.
func OpenBoltPersister(path string, maxAge time.Duration) (*BoltPersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db %s: %w", path, err)
	}

	return &BoltPersister{
		db:     db,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Close releases the database file.
func (p *BoltPersister) Close() error {
	return p.db.Close()
}

// Save replaces the stored snapshot.
func (p *BoltPersister) Save(snap Snapshot) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(queriesBucket) != nil {
			if err := tx.DeleteBucket(queriesBucket); err != nil {
				return err
			}
		}

		b, err := tx.CreateBucket(queriesBucket)
		if err != nil {
			return err
		}

		for _, q := range snap.Queries {
			data, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("failed to encode query %s: %w", q.Hash, err)
			}
			if err := b.Put([]byte(q.Key.Hash()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the stored snapshot, dropping entries past the max age.
func (p *BoltPersister) Load() (Snapshot, error) {
	var snap Snapshot

	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(queriesBucket)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var q DehydratedQuery
			if err := json.Unmarshal(v, &q); err != nil {
				return fmt.Errorf("failed to decode query %s: %w", k, err)
			}
			if p.maxAge > 0 && p.now().Sub(q.UpdatedAt) > p.maxAge {
				return nil
			}
			snap.Queries = append(snap.Queries, q)
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
