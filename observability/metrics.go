// Package observability holds the prometheus collectors updated by the compiler.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FormsCompiledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplisp_forms_compiled_total",
		Help: "Total number of top-level forms compiled to PHP.",
	})

	UnitsCompiledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snaplisp_units_compiled_total",
		Help: "Total number of compilation units, by input kind.",
	}, []string{"input"})

	MacroExpansionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snaplisp_macro_expansions_total",
		Help: "Total number of macro expansions, by macro namespace.",
	}, []string{"namespace"})

	CompileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snaplisp_compile_errors_total",
		Help: "Total number of failed compilations, by error kind.",
	}, []string{"kind"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snaplisp_stage_seconds",
		Help:    "Time spent in a compiler stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplisp_watcher_events_total",
		Help: "Total number of file system events received by compile --watch.",
	})
)

// Stage labels
const (
	StageRead    = "read"
	StageAnalyze = "analyze"
	StageEmit    = "emit"
)
