package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrSource    = "source"
	attrResult    = "result"
	attrOperation = "operation"
	attrBucket    = "bucket"
)

// Metrics records dashboard activity. The zero value is a no-op recorder.
type Metrics struct {
	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram

	refreshTotal    metric.Int64Counter
	refreshDuration metric.Float64Histogram
	remoteEvents    metric.Int64Gauge

	taskOps     metric.Int64Counter
	bucketSizes metric.Int64Gauge
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.httpRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpLatency, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.refreshTotal, err = meter.Int64Counter("remote_refresh_total",
		metric.WithDescription("Remote event refreshes by result"),
	); err != nil {
		return nil, fmt.Errorf("failed to create remote_refresh_total counter: %w", err)
	}

	if m.refreshDuration, err = meter.Float64Histogram("remote_refresh_duration_seconds",
		metric.WithDescription("Remote event refresh duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create remote_refresh_duration_seconds histogram: %w", err)
	}

	if m.remoteEvents, err = meter.Int64Gauge("remote_events",
		metric.WithDescription("Remote events held after the last refresh"),
	); err != nil {
		return nil, fmt.Errorf("failed to create remote_events gauge: %w", err)
	}

	if m.taskOps, err = meter.Int64Counter("personal_task_operations_total",
		metric.WithDescription("Personal task create/delete operations by result"),
	); err != nil {
		return nil, fmt.Errorf("failed to create personal_task_operations_total counter: %w", err)
	}

	if m.bucketSizes, err = meter.Int64Gauge("agenda_bucket_events",
		metric.WithDescription("Events in each bucket of the last computed view"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agenda_bucket_events gauge: %w", err)
	}

	return m, nil
}

// RecordRefresh records one remote refresh and the number of events it held.
func (m *Metrics) RecordRefresh(ctx context.Context, source string, d time.Duration, count int, err error) {
	if m == nil || m.refreshTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrResult, result),
	))
	m.refreshDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrSource, source)))
	m.remoteEvents.Record(ctx, int64(count), metric.WithAttributes(attribute.String(attrSource, source)))
}

// RecordTaskOp records a personal task operation. result is one of
// "ok", "noop" or "error".
func (m *Metrics) RecordTaskOp(ctx context.Context, op, result string) {
	if m == nil || m.taskOps == nil {
		return
	}
	m.taskOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, op),
		attribute.String(attrResult, result),
	))
}

// RecordBucket records the size of one computed bucket.
func (m *Metrics) RecordBucket(ctx context.Context, bucket string, size int) {
	if m == nil || m.bucketSizes == nil {
		return
	}
	m.bucketSizes.Record(ctx, int64(size), metric.WithAttributes(attribute.String(attrBucket, bucket)))
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if m == nil || m.httpRequests == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", c.Request.Method),
			attribute.Int("http.status_code", status),
			attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
		)
		m.httpRequests.Add(c.Request.Context(), 1, attrs)
		m.httpLatency.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}
}
