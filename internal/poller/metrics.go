package poller

import "github.com/prometheus/client_golang/prometheus"

const (
	reasonIneligible = "ineligible"
	reasonDisabled   = "disabled"
)

var (
	tickCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "ticks_total",
		Help:      "Number of poll ticks started.",
	})

	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "tick_duration_seconds",
		Help:      "Time spent listing, fetching and reconciling one tick.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	listErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "list_errors_total",
		Help:      "Number of ticks skipped because the roster could not be read.",
	})

	fetchErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "fetch_errors_total",
		Help:      "Number of per-identity upstream fetch failures.",
	})

	persistErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "persist_errors_total",
		Help:      "Number of watermark writes that failed.",
	})

	advancedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "watermarks_advanced_total",
		Help:      "Number of watermarks advanced to a newly observed record.",
	})

	emittedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "records_emitted_total",
		Help:      "Number of records pushed to the outgoing sequence.",
	})

	suppressedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "records_suppressed_total",
		Help:      "Number of new records that advanced a watermark without being emitted, labeled by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(tickCounter, tickDuration, listErrorCounter, fetchErrorCounter,
		persistErrorCounter, advancedCounter, emittedCounter, suppressedCounter)
}
