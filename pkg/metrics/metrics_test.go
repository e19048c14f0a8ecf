package metrics_test

import (
	"testing"

	"github.com/Gunvolt24/kafka_transformer/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister_IsIdempotent(t *testing.T) {
	// Должно выполняться без паники даже при повторном вызове.
	t.Helper()
	metrics.MustRegister()
	metrics.MustRegister()
}

func TestRecordCounters_Inc(t *testing.T) {
	metrics.MustRegister()

	beforeConsumed := testutil.ToFloat64(metrics.RecordsConsumed.WithLabelValues("in"))
	beforeProduced := testutil.ToFloat64(metrics.RecordsProduced.WithLabelValues("out"))
	beforeFailed := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues("synchronous", "produce"))

	metrics.RecordsConsumed.WithLabelValues("in").Inc()
	metrics.RecordsProduced.WithLabelValues("out").Inc()
	metrics.RecordsFailed.WithLabelValues("synchronous", "produce").Inc()

	if got := testutil.ToFloat64(metrics.RecordsConsumed.WithLabelValues("in")); got != beforeConsumed+1 {
		t.Fatalf("RecordsConsumed: got=%v want=%v", got, beforeConsumed+1)
	}
	if got := testutil.ToFloat64(metrics.RecordsProduced.WithLabelValues("out")); got != beforeProduced+1 {
		t.Fatalf("RecordsProduced: got=%v want=%v", got, beforeProduced+1)
	}
	if got := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues("synchronous", "produce")); got != beforeFailed+1 {
		t.Fatalf("RecordsFailed: got=%v want=%v", got, beforeFailed+1)
	}
}

func TestFailedByStage_CountersByLabel(t *testing.T) {
	metrics.MustRegister()

	transformBefore := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues("asynchronous", "transform"))
	decodeBefore := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues("asynchronous", "decode"))

	metrics.RecordsFailed.WithLabelValues("asynchronous", "transform").Inc()
	metrics.RecordsFailed.WithLabelValues("asynchronous", "transform").Inc()

	if got := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues("asynchronous", "transform")); got != transformBefore+2 {
		t.Fatalf("RecordsFailed(transform): got=%v want=%v", got, transformBefore+2)
	}
	if got := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues("asynchronous", "decode")); got != decodeBefore {
		t.Fatalf("RecordsFailed(decode): got=%v want=%v", got, decodeBefore)
	}
}

func TestInFlight_GaugeSet(t *testing.T) {
	metrics.MustRegister()

	g := metrics.InFlight.WithLabelValues("test")
	cur := testutil.ToFloat64(g)

	g.Set(cur + 5)
	if got := testutil.ToFloat64(g); got != cur+5 {
		t.Fatalf("InFlight after +5: got=%v want=%v", got, cur+5)
	}

	g.Set(cur) // вернуть как было
	if got := testutil.ToFloat64(g); got != cur {
		t.Fatalf("InFlight restore: got=%v want=%v", got, cur)
	}
}
