// Package metrics provides Prometheus metrics for the gateway and the transcode pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediapipe",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Served gateway requests by resource kind and status code",
	}, []string{"kind", "code"})

	upstreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediapipe",
		Subsystem: "gateway",
		Name:      "upstream_retries_total",
		Help:      "Upstream fetch attempts retried after transient errors",
	})

	variantsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediapipe",
		Subsystem: "gateway",
		Name:      "variants_dropped_total",
		Help:      "Master playlist variants dropped because they were unreachable",
	})

	encodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediapipe",
		Subsystem: "transcode",
		Name:      "encode_duration_seconds",
		Help:      "Time taken to encode one rendition",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
	}, []string{"label", "backend", "result"})

	encodeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediapipe",
		Subsystem: "transcode",
		Name:      "fallbacks_total",
		Help:      "Renditions re-encoded in software after a hardware failure",
	}, []string{"label"})
)

// ObserveGatewayRequest counts one served request.
func ObserveGatewayRequest(kind string, code int) {
	gatewayRequests.WithLabelValues(kind, strconv.Itoa(code)).Inc()
}

func IncUpstreamRetries() {
	upstreamRetries.Inc()
}

func AddVariantsDropped(n int) {
	variantsDropped.Add(float64(n))
}

// ObserveEncode records one encoder invocation.
func ObserveEncode(label, backend string, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	encodeDuration.WithLabelValues(label, backend, result).Observe(elapsed.Seconds())
}

func IncEncodeFallbacks(label string) {
	encodeFallbacks.WithLabelValues(label).Inc()
}
