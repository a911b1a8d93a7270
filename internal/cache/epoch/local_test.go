package epoch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSnapshotMissingIsZero(t *testing.T) {
	ctx := context.Background()
	s := NewLocal()

	_, err := s.Bump(ctx, "catalog")
	require.NoError(t, err)
	_, err = s.Bump(ctx, "catalog")
	require.NoError(t, err)

	got, err := s.Snapshot(ctx, []string{"catalog", "doc:x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"catalog": 2, "doc:x": 0}, got)
}

func TestLocalBumpIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewLocal()

	const workers = 64
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Bump(ctx, "catalog")
		}()
	}
	wg.Wait()

	got, err := s.Snapshot(ctx, []string{"catalog"})
	require.NoError(t, err)
	assert.Equal(t, uint64(workers), got["catalog"])
}
