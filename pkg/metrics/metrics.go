package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecordsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_records_consumed_total",
			Help: "Number of records fetched from the source topic",
		},
		[]string{"topic"},
	)
	RecordsTransformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_records_transformed_total",
			Help: "Number of records transformed successfully",
		},
		[]string{"mode"},
	)
	RecordsProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_records_produced_total",
			Help: "Number of transformed records acknowledged by the broker",
		},
		[]string{"topic"},
	)
	RecordsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_records_failed_total",
			Help: "Number of records failed per pipeline stage",
		},
		[]string{"mode", "stage"}, // decode|transform|produce
	)
)

var (
	Commits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_commits_total",
			Help: "Number of committed read positions",
		},
		[]string{"topic"},
	)
	CommitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_commit_failures_total",
			Help: "Number of failed commit attempts",
		},
		[]string{"topic"},
	)
	InFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transformer_inflight",
			Help: "Records held by the in-flight window",
		},
		[]string{"mode"},
	)
	FatalErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_fatal_errors_total",
			Help: "Fatal errors that stopped an engine",
		},
		[]string{"mode"},
	)
)

var (
	JournalOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transformer_journal_operations_total",
			Help: "Failure journal operations",
		},
		[]string{"op"}, // record|evicted|expired|dropped
	)
	JournalSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "transformer_journal_size",
			Help: "Number of failures currently held by the in-memory journal",
		},
	)
)

var registerOnce sync.Once

// MustRegister регистрирует коллекторы в DefaultRegisterer; повторный вызов безопасен.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RecordsConsumed, RecordsTransformed, RecordsProduced, RecordsFailed,
			Commits, CommitFailures, InFlight, FatalErrors,
			JournalOps, JournalSize,
		)
	})
}
