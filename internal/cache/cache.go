// Package cache is a read-through cache whose entries are tagged with
// invalidation groups.
//
// Every entry carries the epoch of each of its groups as observed before the
// value was computed. InvalidateGroup bumps a group's epoch; a read serves an
// entry only while every stamped epoch still matches and its TTL has not
// elapsed. A value computed concurrently with an invalidation is therefore
// stamped with the old epoch and rejected by every read that starts after the
// invalidation returns.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"campaign/internal/cache/codec"
	"campaign/internal/cache/epoch"
	"campaign/internal/cache/provider"
	"campaign/internal/cache/wire"
)

// Invalidator is the write-side surface used by components that mutate
// cached data.
type Invalidator interface {
	InvalidateGroup(ctx context.Context, group string) error
}

// Store caches values of type V under a namespace.
type Store[V any] struct {
	ns         string
	provider   provider.Provider
	epochs     epoch.Store
	codec      codec.Codec[V]
	defaultTTL time.Duration
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	now        func() time.Time
	flights    singleflight.Group
}

type settings struct {
	defaultTTL time.Duration
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

type Option func(*settings)

// WithDefaultTTL is used when a caller passes ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *settings) { s.defaultTTL = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func New[V any](namespace string, p provider.Provider, epochs epoch.Store, c codec.Codec[V], opts ...Option) (*Store[V], error) {
	if namespace == "" {
		return nil, errors.New("cache namespace is required")
	}
	if p == nil {
		return nil, errors.New("cache provider is required")
	}
	if epochs == nil {
		return nil, errors.New("cache epoch store is required")
	}
	if c == nil {
		return nil, errors.New("cache codec is required")
	}
	s := settings{
		defaultTTL: 10 * time.Minute,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Store[V]{
		ns:         namespace,
		provider:   p,
		epochs:     epochs,
		codec:      c,
		defaultTTL: s.defaultTTL,
		logger:     s.logger,
		metrics:    s.metrics,
		tracer:     otel.Tracer("campaign/internal/cache"),
		now:        s.now,
	}, nil
}

func (s *Store[V]) storageKey(key string) string { return s.ns + ":" + key }

// Get returns the cached value for key. Expired, stale and unreadable entries
// are reported as a miss and deleted. Provider failures are logged and
// reported as a miss.
func (s *Store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	return s.get(ctx, key, nil)
}

// get validates against snap when given; groups absent from snap are read
// from the epoch store.
func (s *Store[V]) get(ctx context.Context, key string, snap map[string]uint64) (V, bool, error) {
	v, ok := s.lookup(ctx, key, snap)
	if ok {
		s.metrics.hit(s.ns)
	} else {
		s.metrics.miss(s.ns)
	}
	return v, ok, nil
}

// lookup reads and validates an entry without counting the hit or miss.
func (s *Store[V]) lookup(ctx context.Context, key string, snap map[string]uint64) (V, bool) {
	var zero V
	sk := s.storageKey(key)

	raw, ok, err := s.provider.Get(ctx, sk)
	if err != nil {
		s.metrics.providerError(s.ns, "get")
		s.logger.WarnContext(ctx, "cache provider get failed", "namespace", s.ns, "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	entry, err := wire.Decode(raw)
	if err != nil {
		s.drop(ctx, sk, "corrupt")
		return zero, false
	}
	if entry.ExpiredAt(s.now()) {
		s.drop(ctx, sk, "expired")
		return zero, false
	}

	current, err := s.epochsFor(ctx, entry.Groups, snap)
	if err != nil {
		s.logger.WarnContext(ctx, "cache epoch snapshot failed", "namespace", s.ns, "key", key, "error", err)
		s.metrics.bypass(s.ns)
		return zero, false
	}
	for _, g := range entry.Groups {
		if current[g.Name] != g.Epoch {
			s.drop(ctx, sk, "stale")
			s.metrics.stale(s.ns)
			return zero, false
		}
	}

	v, err := s.codec.Decode(entry.Payload)
	if err != nil {
		s.drop(ctx, sk, "undecodable")
		return zero, false
	}
	return v, true
}

func (s *Store[V]) epochsFor(ctx context.Context, groups []wire.GroupEpoch, snap map[string]uint64) (map[string]uint64, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	var missing []string
	for _, g := range groups {
		if _, ok := snap[g.Name]; !ok {
			missing = append(missing, g.Name)
		}
	}
	if len(missing) == 0 {
		return snap, nil
	}
	fresh, err := s.epochs.Snapshot(ctx, missing)
	if err != nil {
		return nil, err
	}
	for k, v := range snap {
		fresh[k] = v
	}
	return fresh, nil
}

func (s *Store[V]) drop(ctx context.Context, sk, reason string) {
	if err := s.provider.Del(ctx, sk); err != nil {
		s.metrics.providerError(s.ns, "del")
		s.logger.WarnContext(ctx, "cache provider delete failed", "namespace", s.ns, "reason", reason, "error", err)
	}
}

// Set stores value stamped with the current epochs of groups. Provider
// failures are logged and dropped; an encoding failure is returned.
func (s *Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration, groups ...string) error {
	groups = normalizeGroups(groups)
	snap, err := s.epochs.Snapshot(ctx, groups)
	if err != nil {
		s.logger.WarnContext(ctx, "cache epoch snapshot failed, skipping write", "namespace", s.ns, "key", key, "error", err)
		s.metrics.bypass(s.ns)
		return nil
	}
	return s.setWithEpochs(ctx, key, value, ttl, groups, snap)
}

func (s *Store[V]) setWithEpochs(ctx context.Context, key string, value V, ttl time.Duration, groups []string, snap map[string]uint64) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	stamped := make([]wire.GroupEpoch, len(groups))
	for i, g := range groups {
		stamped[i] = wire.GroupEpoch{Name: g, Epoch: snap[g]}
	}
	b, err := wire.Encode(wire.Entry{Created: s.now(), TTL: ttl, Groups: stamped, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	ok, err := s.provider.Set(ctx, s.storageKey(key), b, int64(len(b)), ttl)
	if err != nil {
		s.metrics.providerError(s.ns, "set")
		s.logger.WarnContext(ctx, "cache provider set failed", "namespace", s.ns, "key", key, "error", err)
		return nil
	}
	if !ok {
		s.logger.DebugContext(ctx, "cache write rejected by provider", "namespace", s.ns, "key", key)
	}
	return nil
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Concurrent misses on the same key at the same group epochs run
// fn once and share its result. If the epochs cannot be read the cache is
// bypassed and fn runs directly.
func (s *Store[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, groups []string, fn func(context.Context) (V, error)) (V, error) {
	var zero V
	groups = normalizeGroups(groups)

	snap, err := s.epochs.Snapshot(ctx, groups)
	if err != nil {
		s.logger.WarnContext(ctx, "cache epoch snapshot failed, computing uncached", "namespace", s.ns, "key", key, "error", err)
		s.metrics.bypass(s.ns)
		return fn(ctx)
	}

	if v, ok, _ := s.get(ctx, key, snap); ok {
		return v, nil
	}

	ch := s.flights.DoChan(flightKey(key, groups, snap), func() (any, error) {
		cctx := context.WithoutCancel(ctx)
		cctx, span := s.tracer.Start(cctx, "cache.compute", trace.WithAttributes(
			attribute.String("cache.namespace", s.ns),
			attribute.String("cache.key", key),
		))
		defer span.End()

		// A flight for the same snapshot may have finished between the miss
		// above and joining this one.
		if v, ok := s.lookup(cctx, key, snap); ok {
			return v, nil
		}
		s.metrics.compute(s.ns)
		v, err := fn(cctx)
		if err != nil {
			span.RecordError(err)
			return zero, err
		}
		if err := s.setWithEpochs(cctx, key, v, ttl, groups, snap); err != nil {
			s.logger.WarnContext(cctx, "cache store after compute failed", "namespace", s.ns, "key", key, "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Invalidate evicts a single key.
func (s *Store[V]) Invalidate(ctx context.Context, key string) error {
	if err := s.provider.Del(ctx, s.storageKey(key)); err != nil {
		s.metrics.providerError(s.ns, "del")
		return fmt.Errorf("evict cache key %s: %w", key, err)
	}
	return nil
}

// InvalidateGroup retires every entry tagged with group, in any namespace
// sharing the epoch store.
func (s *Store[V]) InvalidateGroup(ctx context.Context, group string) error {
	return bumpGroup(ctx, s.epochs, s.metrics, group)
}

// Groups is the namespace-free invalidation surface over an epoch store.
type Groups struct {
	epochs  epoch.Store
	metrics *Metrics
}

func NewGroups(epochs epoch.Store, metrics *Metrics) *Groups {
	return &Groups{epochs: epochs, metrics: metrics}
}

func (g *Groups) InvalidateGroup(ctx context.Context, group string) error {
	return bumpGroup(ctx, g.epochs, g.metrics, group)
}

func bumpGroup(ctx context.Context, epochs epoch.Store, m *Metrics, group string) error {
	if group == "" {
		return errors.New("cache group is required")
	}
	if _, err := epochs.Bump(ctx, group); err != nil {
		return fmt.Errorf("invalidate cache group %s: %w", group, err)
	}
	m.invalidated(group)
	return nil
}

func normalizeGroups(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}
	out := make([]string, 0, len(groups))
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// flightKey includes the epoch snapshot so a caller that observed a newer
// epoch never joins a computation started before the bump.
func flightKey(key string, groups []string, snap map[string]uint64) string {
	var b strings.Builder
	b.WriteString(key)
	for _, g := range groups {
		b.WriteByte('|')
		b.WriteString(g)
		b.WriteByte('=')
		b.WriteString(strconv.FormatUint(snap[g], 10))
	}
	return b.String()
}
