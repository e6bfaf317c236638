package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/observability"
)

func TestObserveRecordsStatus(t *testing.T) {
	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	require.NoError(t, observability.Observe(context.Background(), red, "test.op", func() error {
		return nil
	}))

	wantErr := errors.New("boom")
	err = observability.Observe(context.Background(), red, "test.op", func() error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestObserveNilMetricsIsNoop(t *testing.T) {
	called := false
	err := observability.Observe(context.Background(), nil, "test.op", func() error {
		called = true

		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}
