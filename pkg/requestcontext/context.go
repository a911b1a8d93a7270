// Package requestcontext carries request-scoped values through services
// without importing net/http. Middleware writes them; services read them.
// Every accessor returns a zero value when the value is absent, so
// background work such as scheduler ticks can call services with a bare
// context.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	subjectKey key = iota
	capabilitiesKey
	requestIDKey
	timeKey
)

// Subject is the token subject, or "" for anonymous readers.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Capabilities lists the raw capability names from the caller's token.
// Unknown names are kept here and dropped when parsed into access tiers.
func Capabilities(ctx context.Context) []string {
	caps, _ := ctx.Value(capabilitiesKey).([]string)
	return caps
}

func WithCapabilities(ctx context.Context, caps []string) context.Context {
	return context.WithValue(ctx, capabilitiesKey, caps)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the time pinned for this request or scheduler tick, falling back to
// the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins now so that every timestamp written under ctx agrees.
func WithTime(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, timeKey, now)
}
