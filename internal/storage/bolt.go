// Package storage opens the BoltDB file shared by the sent-record store and
// sandbox captures.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Open opens (creating if needed) a BoltDB file and ensures the given buckets exist
func Open(path string, buckets ...[]byte) (*bolt.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := EnsureBuckets(db, buckets...); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureBuckets creates the buckets that do not exist yet
func EnsureBuckets(db *bolt.DB, buckets ...[]byte) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}
