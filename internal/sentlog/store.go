package sentlog

import (
	"context"
	"fmt"
)

// Store persists the sent-record between runs
type Store interface {
	// Load returns previously sent addresses. A store without prior state
	// returns an empty list.
	Load(ctx context.Context) ([]string, error)

	// Persist saves addresses. Content already in the store is kept, so the
	// stored list is always a superset of what was loaded.
	Persist(ctx context.Context, addresses []string) error

	Close() error
}

// LoadRecord loads the store into a fresh Record
func LoadRecord(ctx context.Context, store Store) (*Record, error) {
	addresses, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sent record: %w", err)
	}
	return NewRecord(addresses), nil
}

// merge returns base followed by the items of extra not present in base
func merge(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, addr := range base {
		out = append(out, addr)
		seen[addr] = struct{}{}
	}
	for _, addr := range extra {
		if _, ok := seen[addr]; ok {
			continue
		}
		out = append(out, addr)
		seen[addr] = struct{}{}
	}
	return out
}
