// Package epoch stores the per-group invalidation counters. A group's epoch
// only ever increases; a missing group reads as epoch 0.
package epoch

import (
	"context"
	"sync"
)

// Store abstracts where group epochs live.
type Store interface {
	// Snapshot returns the current epoch of every requested group.
	Snapshot(ctx context.Context, groups []string) (map[string]uint64, error)
	// Bump atomically increments a group's epoch and returns the new value.
	Bump(ctx context.Context, group string) (uint64, error)
}

// Local keeps epochs in-process.
type Local struct {
	mu     sync.RWMutex
	epochs map[string]uint64
}

var _ Store = (*Local)(nil)

func NewLocal() *Local {
	return &Local{epochs: make(map[string]uint64)}
}

func (s *Local) Snapshot(_ context.Context, groups []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(groups))
	s.mu.RLock()
	for _, g := range groups {
		out[g] = s.epochs[g]
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Local) Bump(_ context.Context, group string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[group]++
	return s.epochs[group], nil
}
