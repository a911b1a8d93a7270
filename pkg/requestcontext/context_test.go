package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsOnBareContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Subject(ctx))
	assert.Nil(t, Capabilities(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTrip(t *testing.T) {
	pinned := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	ctx := WithSubject(context.Background(), "reader-7")
	ctx = WithCapabilities(ctx, []string{"subscriber"})
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, pinned)

	assert.Equal(t, "reader-7", Subject(ctx))
	assert.Equal(t, []string{"subscriber"}, Capabilities(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, pinned, Now(ctx))
}
