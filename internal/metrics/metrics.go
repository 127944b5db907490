package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salonbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	holdEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_total",
			Help:      "Hold lifecycle transitions by outcome.",
		},
		[]string{"outcome"},
	)

	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_conversions_total",
			Help:      "Hold to booking conversions by outcome.",
		},
		[]string{"outcome"},
	)

	holdsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_purged_total",
			Help:      "Expired hold rows removed by the sweeper.",
		},
	)

	availabilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_duration_seconds",
			Help:      "Time spent computing a day of slots.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, holdEvents, conversions, holdsPurged, availabilityDuration)
	})
}

// IncHTTP increments the request counter for an endpoint label.
func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func IncHold(outcome string) {
	holdEvents.WithLabelValues(outcome).Inc()
}

func IncConversion(outcome string) {
	conversions.WithLabelValues(outcome).Inc()
}

func AddPurged(n int64) {
	if n > 0 {
		holdsPurged.Add(float64(n))
	}
}

func ObserveAvailability(d time.Duration) {
	availabilityDuration.Observe(d.Seconds())
}
