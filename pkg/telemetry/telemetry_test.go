// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestCallWithTelemetryPassesResultAndError(t *testing.T) {
	t.Parallel()

	tracer := noop.NewTracerProvider().Tracer("test")

	v, err := CallWithTelemetry(tracer, "ok", context.Background(), func(ctx context.Context) (int, error) {
		SetAttribute(ctx, "answer", 42)
		AddEvent(ctx, "computed")
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)

	failure := errors.New("failed")
	err = CallWithTelemetryNoResult(tracer, "fail", context.Background(), func(_ context.Context) error {
		return failure
	})
	require.ErrorIs(t, err, failure)
}

func TestNewInt64Counter(t *testing.T) {
	t.Parallel()

	counter := NewInt64Counter(metricnoop.NewMeterProvider().Meter("test"), "test.count", "Counts tests")
	require.NotNil(t, counter)
	counter.Add(context.Background(), 1)

	require.NotNil(t, DefaultMeter())
}
