package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	fail  bool
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.calls.Add(1)
	if p.fail {
		return 0, errors.New("db down")
	}
	return 3, nil
}

func TestJanitorRunOnceRecordsPurged(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	p := &countingPurger{}
	j := NewJanitor(p, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	j.RunOnce(context.Background())
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Purged))

	p.fail = true
	j.RunOnce(context.Background())
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Purged), "failures purge nothing")
}

func TestJanitorStopsWithContext(t *testing.T) {
	p := &countingPurger{}
	j := NewJanitor(p, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
