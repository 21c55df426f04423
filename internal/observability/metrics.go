package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lastTickGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchwatch",
		Subsystem: "poller",
		Name:      "last_tick_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent poll tick that reconciled the roster.",
	})
	lastWatermarkGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchwatch",
		Subsystem: "roster",
		Name:      "last_watermark_advanced_timestamp_seconds",
		Help:      "Unix timestamp of the most recent watermark advance.",
	})
	rosterSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchwatch",
		Subsystem: "roster",
		Name:      "tracked_identities",
		Help:      "Number of identities listed on the most recent tick.",
	})
)

func init() {
	prometheus.MustRegister(lastTickGauge, lastWatermarkGauge, rosterSizeGauge)
}

// RecordTickCompleted updates the tick watermark gauge.
func RecordTickCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastTickGauge.Set(float64(ts.Unix()))
}

// RecordWatermarkAdvanced updates the roster watermark gauge.
func RecordWatermarkAdvanced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastWatermarkGauge.Set(float64(ts.Unix()))
}

// RecordRosterSize reports how many identities the last tick saw.
func RecordRosterSize(n int) {
	rosterSizeGauge.Set(float64(n))
}
