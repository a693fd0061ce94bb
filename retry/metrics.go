package retry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("scenegen.retry")
	meter  = otel.Meter("scenegen.retry")
)

var (
	attemptTotal metric.Int64Counter
	runAttempts  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		attemptTotal, err = meter.Int64Counter(
			"scene_generation_attempts_total",
			metric.WithDescription("Generation attempts by result"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		runAttempts, err = meter.Int64Histogram(
			"scene_generation_run_attempts",
			metric.WithDescription("Attempts used per run"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordAttempt(ctx context.Context, result string) {
	if err := initMetrics(); err != nil {
		return
	}
	attemptTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func recordRun(ctx context.Context, state State, attempts int) {
	if err := initMetrics(); err != nil {
		return
	}
	runAttempts.Record(ctx, int64(attempts), metric.WithAttributes(attribute.String("state", state.String())))
}
