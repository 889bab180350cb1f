package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector of this module. It is separate from the
// default registry so one-shot invocations only export their own series.
var Registry = prometheus.NewRegistry()

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ddi",
			Subsystem: "ipam",
			Name:      "requests_total",
			Help:      "A counter for requests sent to the IPAM server.",
		},
		[]string{"code", "method"},
	)

	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ddi",
			Subsystem: "ipam",
			Name:      "request_duration_seconds",
			Help:      "A histogram of latencies for IPAM requests.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	flows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ddi",
			Subsystem: "ipam",
			Name:      "flow_total",
			Help:      "Lifecycle flows run, by outcome.",
		},
		[]string{"flow", "outcome"},
	)
)

func init() {
	Registry.MustRegister(requests, duration, flows)
}

// ObserveRequest records one IPAM request. code is 0 when no response was received.
func ObserveRequest(method string, code int, started time.Time) {
	c := "error"
	if code > 0 {
		c = strconv.Itoa(code)
	}
	requests.WithLabelValues(c, method).Inc()
	duration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// ObserveFlow records the outcome of one lifecycle flow.
func ObserveFlow(flow, outcome string) {
	flows.WithLabelValues(flow, outcome).Inc()
}

// Requests exposes the request counter for tests.
func Requests() *prometheus.CounterVec {
	return requests
}

// Flows exposes the flow counter for tests.
func Flows() *prometheus.CounterVec {
	return flows
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
