package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/Temkum/voting-system-demo/pkg/types"
)

var (
	// Bucket names
	bucketPolls = []byte("polls")
	bucketMeta  = []byte("meta")
)

var keyOrder = []byte("order")

// SnapshotCache persists the last fetched poll list so a restarted client
// can render stale tallies before its first fetch completes. It is display
// warm-start only: the first successful fetch replaces it wholesale and is
// never reconciled against it.
type SnapshotCache struct {
	db *bolt.DB
}

// Open opens (or creates) the snapshot cache under dataDir.
func Open(dataDir string) (*SnapshotCache, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "pollsync.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPolls, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotCache{db: db}, nil
}

// Close closes the database
func (c *SnapshotCache) Close() error {
	return c.db.Close()
}

// SavePolls overwrites the cached snapshot with the given polls, preserving
// their order.
func (c *SnapshotCache) SavePolls(polls []types.Poll) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPolls); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketPolls)
		if err != nil {
			return err
		}

		order := make([]string, 0, len(polls))
		for i := range polls {
			data, err := json.Marshal(&polls[i])
			if err != nil {
				return fmt.Errorf("failed to marshal poll %s: %w", polls[i].ID, err)
			}
			if err := b.Put([]byte(polls[i].ID), data); err != nil {
				return err
			}
			order = append(order, polls[i].ID)
		}

		orderData, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyOrder, orderData)
	})
}

// LoadPolls returns the cached snapshot in saved order. An empty cache
// yields an empty slice.
func (c *SnapshotCache) LoadPolls() ([]types.Poll, error) {
	var polls []types.Poll
	err := c.db.View(func(tx *bolt.Tx) error {
		var order []string
		if data := tx.Bucket(bucketMeta).Get(keyOrder); data != nil {
			if err := json.Unmarshal(data, &order); err != nil {
				return fmt.Errorf("failed to decode poll order: %w", err)
			}
		}

		b := tx.Bucket(bucketPolls)
		for _, id := range order {
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}
			var poll types.Poll
			if err := json.Unmarshal(data, &poll); err != nil {
				return fmt.Errorf("failed to decode poll %s: %w", id, err)
			}
			polls = append(polls, poll)
		}
		return nil
	})
	return polls, err
}
