// Package telemetrytest builds a fully wired Observability for tests, backed by
// an observed zap core, a private prometheus registry and an in-memory span recorder.
package telemetrytest

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/oteltrace"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/prometrics"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/telemetry"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/zaplogger"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

type Harness struct {
	Tel      observability.Observability
	Logs     *observer.ObservedLogs
	Registry *prometheus.Registry
	Spans    *tracetest.SpanRecorder
}

func New(t testing.TB) *Harness {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	inst := prometrics.RegisterDefaults(prometrics.New("", "", reg))

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tel := telemetry.New(
		oteltrace.FromProvider(tp, "test"),
		zaplogger.Wrap(zap.New(core)),
		inst.Counters,
		inst.Histograms,
		inst.Gauges,
	)
	return &Harness{Tel: tel, Logs: logs, Registry: reg, Spans: rec}
}

// Count returns the value of a counter or gauge series identified by name and label values.
func (h *Harness) Count(t testing.TB, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := h.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !matches(m.GetLabel(), labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

// Series returns how many series are exported under name.
func (h *Harness) Series(t testing.TB, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(h.Registry, name)
	if err != nil {
		t.Fatalf("gather %s: %v", name, err)
	}
	return n
}

// Messages lists the logged messages in order.
func (h *Harness) Messages() []string {
	all := h.Logs.All()
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.Message)
	}
	return out
}

// SpanNames lists the names of ended spans in order.
func (h *Harness) SpanNames() []string {
	ended := h.Spans.Ended()
	out := make([]string, 0, len(ended))
	for _, s := range ended {
		out = append(out, s.Name())
	}
	return out
}

func matches(pairs []*dto.LabelPair, want map[string]string) bool {
	got := make(map[string]string, len(pairs))
	for _, p := range pairs {
		got[p.GetName()] = p.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
