package core

import (
	"context"
	"testing"
	"time"

	"contrastcore/internal/infra/persistence/memory"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

type metricCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct{ calls []metricCall }

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricCall{op: op, success: success})
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (t *captureTracer) Start(ctx context.Context, op string) (context.Context, Span) {
	t.started = append(t.started, op)
	return ctx, &captureSpan{tracer: t, op: op}
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestServiceObservabilityHooks(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := NewService(memory.NewStore(nil),
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)
	ctx := context.Background()

	if _, _, err := svc.CreateStudy(ctx, "obs", []string{"s1", "s2"}); err != nil {
		t.Fatalf("create study: %v", err)
	}
	if _, err := svc.DeleteStudy(ctx, "missing"); err == nil {
		t.Fatal("expected delete of missing study to fail")
	}

	if len(tracer.started) != 2 || tracer.started[0] != "create_study" || tracer.started[1] != "delete_study" {
		t.Fatalf("spans started = %v", tracer.started)
	}
	if len(tracer.ended) != 2 || tracer.ended[1].err == nil {
		t.Fatalf("spans ended = %+v", tracer.ended)
	}
	if len(metrics.calls) != 2 {
		t.Fatalf("metric calls = %+v", metrics.calls)
	}
	if !metrics.calls[0].success || metrics.calls[1].success {
		t.Fatalf("metric outcomes = %+v", metrics.calls)
	}
	wantLogs := []string{"d:create_study", "e:delete_study"}
	for i, want := range wantLogs {
		if logger.calls[i] != want {
			t.Fatalf("log calls = %v, want %v", logger.calls, wantLogs)
		}
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "test_op", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.DurationsMS["test_op"] != 15 {
		t.Fatalf("durations = %v", snap.DurationsMS)
	}
	if snap.Results["test_op"]["success"] != 1 || snap.Results["test_op"]["error"] != 1 {
		t.Fatalf("results = %v", snap.Results)
	}
	if rec.Name() == "" {
		t.Fatal("expected generated expvar name")
	}
}

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "build_design", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "build_design", false, 5*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var ops *dto.MetricFamily
	for _, fam := range families {
		if fam.GetName() == "contrastcore_operations_total" {
			ops = fam
		}
	}
	if ops == nil {
		t.Fatalf("operations counter not registered, families: %v", families)
	}
	var total float64
	for _, m := range ops.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	if total != 2 {
		t.Fatalf("operation count = %v, want 2", total)
	}
}
