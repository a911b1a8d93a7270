package cache

import (
	"log/slog"
	"time"

	"campaign/internal/cache/codec"
	"campaign/internal/cache/epoch"
	"campaign/internal/cache/provider"
)

// Backend bundles the collaborators shared by every Store in the process so
// that components can create their own namespaces.
type Backend struct {
	Provider provider.Provider
	Epochs   epoch.Store
	Logger   *slog.Logger
	Metrics  *Metrics
}

// Groups returns the invalidation surface over the backend's epochs.
func (b Backend) Groups() *Groups {
	return NewGroups(b.Epochs, b.Metrics)
}

// NewStore creates a msgpack-encoded Store in namespace.
func NewStore[V any](b Backend, namespace string, defaultTTL time.Duration) (*Store[V], error) {
	opts := []Option{WithDefaultTTL(defaultTTL), WithMetrics(b.Metrics)}
	if b.Logger != nil {
		opts = append(opts, WithLogger(b.Logger))
	}
	return New[V](namespace, b.Provider, b.Epochs, codec.Msgpack[V]{}, opts...)
}
