package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	stateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sttd",
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "1 for the current STT runtime state, 0 otherwise",
		},
		[]string{"state"},
	)

	startsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "supervisor",
			Name:      "starts_total",
			Help:      "Start sequences by outcome",
		},
		[]string{"outcome"},
	)

	startDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sttd",
			Subsystem: "supervisor",
			Name:      "start_duration_seconds",
			Help:      "Duration of start sequences in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "supervisor",
			Name:      "downloads_total",
			Help:      "Runtime archive downloads by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(stateGauge, startsTotal, startDuration, downloadsTotal)
}

func observeState(s State) {
	for _, st := range States {
		v := 0.0
		if st == s {
			v = 1
		}
		stateGauge.WithLabelValues(string(st)).Set(v)
	}
}
