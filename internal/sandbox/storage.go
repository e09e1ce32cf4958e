package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BucketSandbox holds captured messages keyed by capture time and ID
var BucketSandbox = []byte("sandbox")

// ErrNotFound is returned when no capture has the requested ID
var ErrNotFound = errors.New("sandbox message not found")

// Message represents a message captured in sandbox or redirect mode
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Cc         []string  `json:"cc,omitempty"`
	OriginalTo []string  `json:"original_to,omitempty"` // Real recipients before redirect
	Subject    string    `json:"subject"`
	Data       []byte    `json:"data"`   // Encoded MIME message
	Domain     string    `json:"domain"` // Recipient domain
	Mode       string    `json:"mode"`   // sandbox, redirect
	CapturedAt time.Time `json:"captured_at"`
}

// Storage provides sandbox message storage
type Storage struct {
	db *bolt.DB
}

// NewStorage creates a new sandbox storage using the provided BoltDB instance
func NewStorage(db *bolt.DB) (*Storage, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(BucketSandbox)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox bucket: %w", err)
	}

	return &Storage{db: db}, nil
}

// Save stores a message in the sandbox
func (s *Storage) Save(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketSandbox).Put(makeIndexKey(msg.CapturedAt, msg.ID), data)
	})
}

// Get retrieves a message by ID
func (s *Storage) Get(ctx context.Context, id string) (*Message, error) {
	var msg *Message

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketSandbox).ForEach(func(k, v []byte) error {
			var m Message
			if err := json.Unmarshal(v, &m); err != nil {
				return nil
			}
			if m.ID == id {
				msg = &m
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNotFound
	}

	return msg, nil
}

// ListFilter contains filters for listing messages
type ListFilter struct {
	Mode   string
	Domain string
	Limit  int
}

// List returns captures matching the filter, newest first, without bodies
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]*Message, error) {
	var messages []*Message

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketSandbox).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				continue
			}

			if filter.Mode != "" && msg.Mode != filter.Mode {
				continue
			}
			if filter.Domain != "" && msg.Domain != filter.Domain {
				continue
			}

			msg.Data = nil
			messages = append(messages, &msg)

			if filter.Limit > 0 && len(messages) >= filter.Limit {
				break
			}
		}

		return nil
	})

	return messages, err
}

// Clear removes captures older than olderThan; zero removes all
func (s *Storage) Clear(ctx context.Context, olderThan time.Duration) (int, error) {
	var count int
	cutoff := time.Now().Add(-olderThan)

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSandbox)

		var keysToDelete [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if olderThan > 0 {
				var msg Message
				if err := json.Unmarshal(v, &msg); err == nil && msg.CapturedAt.After(cutoff) {
					return nil
				}
			}
			keysToDelete = append(keysToDelete, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keysToDelete {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			count++
		}

		return nil
	})

	return count, err
}

// Stats summarizes the captured messages
type Stats struct {
	Total    int64            `json:"total"`
	ByMode   map[string]int64 `json:"by_mode"`
	ByDomain map[string]int64 `json:"by_domain"`
	NewestAt time.Time        `json:"newest_at,omitempty"`
}

// Stats returns sandbox statistics
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByMode:   make(map[string]int64),
		ByDomain: make(map[string]int64),
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketSandbox).ForEach(func(k, v []byte) error {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return nil
			}

			stats.Total++
			stats.ByMode[msg.Mode]++
			stats.ByDomain[msg.Domain]++
			if msg.CapturedAt.After(stats.NewestAt) {
				stats.NewestAt = msg.CapturedAt
			}
			return nil
		})
	})

	return stats, err
}

// makeIndexKey orders keys by capture time. UTC keeps the lexical order
// consistent across zones.
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(t.UTC().Format("20060102T150405.000000000") + ":" + id)
}
