package transcribe

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "transcribe",
			Name:      "requests_total",
			Help:      "Transcription requests by outcome",
		},
		[]string{"outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sttd",
			Subsystem: "transcribe",
			Name:      "duration_seconds",
			Help:      "Transcription request duration in seconds, including runtime start",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60},
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}
