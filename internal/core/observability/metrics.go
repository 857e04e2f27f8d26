package observability

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var feedLabel atomic.Value

func init() {
	feedLabel.Store("unknown")
}

// SetModelFeed sets the model_feed label stamped on every sample.
func SetModelFeed(feed string) {
	if feed == "" {
		feed = "unknown"
	}
	feedLabel.Store(feed)
}

func getFeed() string {
	if v := feedLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// Request outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeProtocol  = "protocol_error"
	OutcomeMalformed = "malformed"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wcs_requests_total",
			Help: "WCS requests by operation and outcome.",
		},
		[]string{"request", "outcome", "model_feed"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wcs_upstream_latency_seconds",
			Help:    "Time to first response byte from the coverage service.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"request", "model_feed"},
	)

	payloadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wcs_payload_bytes_total",
			Help: "Response body bytes written to files or buckets.",
		},
		[]string{"request", "sink"},
	)

	decodeWarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wcs_decode_warnings_total",
			Help: "Element sets where some, but not all, members had no text.",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bds_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		requestsTotal,
		upstreamLatencySeconds,
		payloadBytesTotal,
		decodeWarningsTotal,
		buildInfo,
	}
}

// Init registers the collectors into reg as well as the default registry.
// Registering twice is not an error.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveRequest(request, outcome string) {
	requestsTotal.WithLabelValues(request, outcome, getFeed()).Inc()
}

func ObserveUpstreamLatency(request string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(request, getFeed()).Observe(durationSeconds)
}

func AddPayloadBytes(request, sink string, n int64) {
	if n <= 0 {
		return
	}
	payloadBytesTotal.WithLabelValues(request, sink).Add(float64(n))
}

func IncDecodeWarning() {
	decodeWarningsTotal.Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
