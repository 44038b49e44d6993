package compiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compilationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsregex_compilations_total",
		Help: "Compilation requests by result (automaton, literal, dead, bailout).",
	}, []string{"result"})

	compilePhaseSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jsregex_compile_phase_seconds",
		Help:    "Wall time of compilation phases.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"phase"})

	traceFinderBailouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jsregex_trace_finder_bailouts_total",
		Help: "Trace finder attempts abandoned as unsupported.",
	})
)
