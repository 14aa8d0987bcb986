package ingestintegrationtests

import (
	"context"
	"testing"
	"time"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	ingestqueue "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/infrastructure/queue"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/Black-And-White-Club/segment-ctf/integration_tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeIngestService struct {
	RunFunc           func(ctx context.Context) (ingestdomain.RunSummary, error)
	RunWithWindowFunc func(ctx context.Context, window ingestdomain.Window) (ingestdomain.RunSummary, error)
}

func (f *FakeIngestService) Run(ctx context.Context) (ingestdomain.RunSummary, error) {
	if f.RunFunc != nil {
		return f.RunFunc(ctx)
	}
	return ingestdomain.RunSummary{}, nil
}

func (f *FakeIngestService) RunWithWindow(ctx context.Context, window ingestdomain.Window) (ingestdomain.RunSummary, error) {
	if f.RunWithWindowFunc != nil {
		return f.RunWithWindowFunc(ctx, window)
	}
	return ingestdomain.RunSummary{}, nil
}

func queueConfig() config.IngestConfig {
	return config.IngestConfig{
		ScheduleInterval: time.Hour,
		RunOnStart:       false,
		JobTimeout:       time.Minute,
	}
}

func TestEnqueue_WorkerRunsExplicitWindow(t *testing.T) {
	env := testutils.GetEnvironment(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	obs := testutils.Observability()

	windows := make(chan ingestdomain.Window, 1)
	svc := &FakeIngestService{
		RunWithWindowFunc: func(ctx context.Context, window ingestdomain.Window) (ingestdomain.RunSummary, error) {
			windows <- window
			return ingestdomain.RunSummary{RunID: "run-q", Window: window}, nil
		},
	}

	q, err := ingestqueue.NewService(ctx, env.DSN, queueConfig(), svc, obs.Logger, obs.Metrics)
	require.NoError(t, err)
	require.NoError(t, q.Start(context.WithoutCancel(ctx)))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		assert.NoError(t, q.Stop(stopCtx))
	}()

	want := ingestdomain.Window{After: 1751864400, Before: 1752454800}
	id, err := q.Enqueue(ctx, "integration", want)
	require.NoError(t, err)
	assert.Positive(t, id)

	select {
	case got := <-windows:
		assert.Equal(t, want, got)
	case <-ctx.Done():
		t.Fatal("ingest job was not worked")
	}
}

func TestEnqueue_ZeroWindowRunsConfiguredWindow(t *testing.T) {
	env := testutils.GetEnvironment(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	obs := testutils.Observability()

	ran := make(chan struct{}, 1)
	svc := &FakeIngestService{
		RunFunc: func(ctx context.Context) (ingestdomain.RunSummary, error) {
			ran <- struct{}{}
			return ingestdomain.RunSummary{}, nil
		},
		RunWithWindowFunc: func(ctx context.Context, window ingestdomain.Window) (ingestdomain.RunSummary, error) {
			t.Errorf("unexpected explicit window %+v", window)
			return ingestdomain.RunSummary{}, nil
		},
	}

	q, err := ingestqueue.NewService(ctx, env.DSN, queueConfig(), svc, obs.Logger, obs.Metrics)
	require.NoError(t, err)
	require.NoError(t, q.Start(context.WithoutCancel(ctx)))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		assert.NoError(t, q.Stop(stopCtx))
	}()

	_, err = q.Enqueue(ctx, "integration", ingestdomain.Window{})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-ctx.Done():
		t.Fatal("ingest job was not worked")
	}
}
