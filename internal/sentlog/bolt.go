package sentlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/outreach/internal/storage"
)

// BucketSent holds one key per emailed address
var BucketSent = []byte("sent")

// entry is the value stored for each address
type entry struct {
	SentAt time.Time `json:"sent_at"`
	Seq    uint64    `json:"seq"`
}

// BoltStore keeps the sent-record in a BoltDB bucket
type BoltStore struct {
	db    *bolt.DB
	now   func() time.Time
	owned bool
}

// NewBoltStore creates a store on an already opened DB; Close leaves the DB open
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	if err := storage.EnsureBuckets(db, BucketSent); err != nil {
		return nil, fmt.Errorf("failed to create sent bucket: %w", err)
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

// OpenBoltStore opens the DB at path and owns it
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := storage.Open(path, BucketSent)
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db, now: time.Now, owned: true}, nil
}

// Load returns addresses ordered by the sequence they were persisted in
func (s *BoltStore) Load(ctx context.Context) ([]string, error) {
	type item struct {
		addr string
		seq  uint64
	}
	var items []item

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketSent).ForEach(func(k, v []byte) error {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil {
				// Keep the address even if its metadata is unreadable
				e = entry{}
			}
			items = append(items, item{addr: string(k), seq: e.Seq})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sent bucket: %w", err)
	}

	// Keys arrive sorted by address
	sort.SliceStable(items, func(i, j int) bool { return items[i].seq < items[j].seq })

	addresses := make([]string, len(items))
	for i, it := range items {
		addresses[i] = it.addr
	}
	return addresses, nil
}

// Persist adds the addresses that are not stored yet
func (s *BoltStore) Persist(ctx context.Context, addresses []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSent)
		now := s.now()

		for _, addr := range addresses {
			if addr == "" || bucket.Get([]byte(addr)) != nil {
				continue
			}

			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}

			data, err := json.Marshal(entry{SentAt: now, Seq: seq})
			if err != nil {
				return fmt.Errorf("failed to marshal entry: %w", err)
			}
			if err := bucket.Put([]byte(addr), data); err != nil {
				return fmt.Errorf("failed to store %s: %w", addr, err)
			}
		}
		return nil
	})
}

// DB returns the underlying database
func (s *BoltStore) DB() *bolt.DB {
	return s.db
}

// Close closes the DB if the store opened it
func (s *BoltStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
