// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Returns the meter registered with the global otel provider.
func DefaultMeter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func NewInt64Counter(meter metric.Meter, name string, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit("1"), // dimensionless
	)
	if err != nil {
		panic(err)
	}
	return counter
}
