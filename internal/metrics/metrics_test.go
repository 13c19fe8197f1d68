package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEmitRecordsCounters(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.Emit(context.Background(), &UpdateReport{
		Bot:                "help-bot",
		UpdateID:           1,
		UpdateType:         "message",
		Outcome:            OutcomeSuccess,
		ProcessingDuration: 25 * time.Millisecond,
	})
	m.Emit(context.Background(), &UpdateReport{
		Bot:        "help-bot",
		UpdateID:   2,
		UpdateType: "message",
		Outcome:    OutcomeError,
		FilterTimings: []FilterTiming{
			{Handler: "first", Duration: time.Millisecond, Err: "filter blew up"},
			{Handler: "second", Duration: time.Millisecond},
		},
	})

	got := testutil.ToFloat64(m.UpdatesTotal.WithLabelValues("help-bot", "message", "success"))
	if got != 1 {
		t.Errorf("updates_total{success} = %v, want 1", got)
	}
	got = testutil.ToFloat64(m.UpdatesTotal.WithLabelValues("help-bot", "message", "error"))
	if got != 1 {
		t.Errorf("updates_total{error} = %v, want 1", got)
	}
	got = testutil.ToFloat64(m.FilterFailuresTotal.WithLabelValues("help-bot", "first"))
	if got != 1 {
		t.Errorf("filter_failures_total = %v, want 1", got)
	}
}

func TestEmitUnknownType(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.Emit(context.Background(), &UpdateReport{Bot: "b", Outcome: OutcomeUndecodable})

	got := testutil.ToFloat64(m.UpdatesTotal.WithLabelValues("b", "unknown", "undecodable"))
	if got != 1 {
		t.Errorf("updates_total{unknown,undecodable} = %v, want 1", got)
	}
}

func TestMultiSinkFanOutAndPanicContainment(t *testing.T) {
	t.Parallel()
	var a, b int
	sink := MultiSink{
		SinkFunc(func(context.Context, *UpdateReport) { a++ }),
		SinkFunc(func(context.Context, *UpdateReport) { panic("bad sink") }),
		nil,
		SinkFunc(func(context.Context, *UpdateReport) { b++ }),
	}

	sink.Emit(context.Background(), &UpdateReport{Bot: "b"})

	if a != 1 || b != 1 {
		t.Errorf("sink calls = %d, %d, want 1, 1", a, b)
	}
}
