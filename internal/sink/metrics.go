package sink

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "sink",
		Name:      "records_delivered_total",
		Help:      "Number of emitted records handed to a sink successfully.",
	}, []string{"sink"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "sink",
		Name:      "records_failed_total",
		Help:      "Number of emitted records a sink failed to deliver.",
	}, []string{"sink"})

	deliverDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "matchwatch",
		Subsystem: "sink",
		Name:      "deliver_duration_seconds",
		Help:      "Time spent delivering a single record.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, deliverDuration)
}
