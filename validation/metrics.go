package validation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	outcomeSuccess    = "success"
	outcomeFailure    = "failure"
	outcomeTimeout    = "timeout"
	outcomeStructural = "structural"
)

var (
	tracer = otel.Tracer("scenegen.validation")
	meter  = otel.Meter("scenegen.validation")
)

var (
	unitLatency metric.Float64Histogram
	unitTotal   metric.Int64Counter
	batchSize   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		unitLatency, err = meter.Float64Histogram(
			"scene_validation_duration_seconds",
			metric.WithDescription("Duration of one toolchain validation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		unitTotal, err = meter.Int64Counter(
			"scene_validation_total",
			metric.WithDescription("Validations by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchSize, err = meter.Int64Histogram(
			"scene_validation_batch_units",
			metric.WithDescription("Units validated per dispatch"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startUnitSpan(ctx context.Context, unitID, entity string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "UnitValidator.Validate",
		trace.WithAttributes(
			attribute.String("validation.unit_id", unitID),
			attribute.String("validation.entity", entity),
		),
	)
}

func finishUnit(ctx context.Context, span trace.Span, res Result, outcome string) {
	span.SetAttributes(
		attribute.String("validation.outcome", outcome),
		attribute.Int("validation.exit_code", res.ExitCode),
	)
	if !res.Success {
		span.SetStatus(codes.Error, outcome)
	}

	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	unitLatency.Record(ctx, res.Duration.Seconds(), attrs)
	unitTotal.Add(ctx, 1, attrs)
}

func recordBatch(ctx context.Context, units int) {
	if err := initMetrics(); err != nil {
		return
	}
	batchSize.Record(ctx, int64(units))
}
