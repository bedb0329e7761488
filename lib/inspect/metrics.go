package inspect

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for inspection operations.
type Metrics struct {
	inspectionDuration metric.Float64Histogram
	pullsTotal         metric.Int64Counter
}

// InitMetrics creates and registers inspection metrics on the manager.
// Safe to skip entirely when OTel is disabled.
func InitMetrics(meter metric.Meter, mgr Manager) error {
	m, ok := mgr.(*manager)
	if !ok {
		return nil
	}

	inspectionDuration, err := meter.Float64Histogram(
		"dive_ui_inspection_duration_seconds",
		metric.WithDescription("Time to run one image inspection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	pullsTotal, err := meter.Int64Counter(
		"dive_ui_image_pulls_total",
		metric.WithDescription("Total image pulls triggered by inspections"),
	)
	if err != nil {
		return err
	}

	queueLength, err := meter.Int64ObservableGauge(
		"dive_ui_inspection_queue_length",
		metric.WithDescription("Current number of active plus pending inspections"),
	)
	if err != nil {
		return err
	}

	activeInspections, err := meter.Int64ObservableGauge(
		"dive_ui_inspections_active",
		metric.WithDescription("Inspections currently running a dive subprocess"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(queueLength, int64(m.queue.Length()))
			o.ObserveInt64(activeInspections, int64(m.queue.ActiveCount()))
			return nil
		},
		queueLength,
		activeInspections,
	)
	if err != nil {
		return err
	}

	m.metrics = &Metrics{
		inspectionDuration: inspectionDuration,
		pullsTotal:         pullsTotal,
	}
	return nil
}

// recordInspection records the duration of a finished inspection.
func (m *manager) recordInspection(ctx context.Context, start time.Time, status string) {
	if m.metrics == nil {
		return
	}
	m.metrics.inspectionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("status", status)))
}

// recordPull records a pull attempt.
func (m *manager) recordPull(ctx context.Context, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.pullsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}
