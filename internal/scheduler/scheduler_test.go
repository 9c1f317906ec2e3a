package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
	block bool
	done  chan struct{}
}

func (r *countingRunner) RunOnce(ctx context.Context) (domain.ForecastRun, error) {
	r.calls.Add(1)
	if r.block {
		<-ctx.Done()
		close(r.done)
		return domain.ForecastRun{}, ctx.Err()
	}
	return domain.ForecastRun{}, r.err
}

func newTestScheduler(r Runner, interval time.Duration) (*Scheduler, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return New(r, interval, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics), metrics
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	r := &countingRunner{}
	s, metrics := newTestScheduler(r, 50*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PipelineRunning))

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.PipelineRunning))
}

func TestScheduler_ErrorsDoNotStopSchedule(t *testing.T) {
	r := &countingRunner{err: errors.New("remote store unavailable")}
	s, _ := newTestScheduler(r, 50*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	r := &countingRunner{block: true, done: make(chan struct{})}
	s, _ := newTestScheduler(r, time.Hour)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Stop()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight run was not cancelled")
	}
	assert.Equal(t, int32(1), r.calls.Load(), "blocked run must not overlap with another")
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s, _ := newTestScheduler(&countingRunner{}, 0)

	require.Error(t, s.Start(context.Background()))
}
