package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	commandRuns      *prometheus.CounterVec // total cli commands
	commandDuration  prometheus.Histogram   // time to run a command
	dnsOperations    *prometheus.CounterVec // planned dns operations
	dnsRequests      *prometheus.CounterVec // dns provider requests
	httpRequests     *prometheus.CounterVec // raw http round trips
	cassetteRequests *prometheus.CounterVec // badgerdb cassette requests
}

// A nil *Metrics is valid and records nothing.

func (m *Metrics) IncCommandRun(command string, success bool) {
	if m == nil {
		return
	}
	m.commandRuns.WithLabelValues(command, boolToResult(success)).Inc()
}

func (m *Metrics) SetCommandDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.commandDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncDNSOperation(operation, zone, recordType string) {
	if m == nil || !isValidOperation(operation) || !isValidRecordType(recordType) || zone == "" {
		return
	}
	m.dnsOperations.WithLabelValues(operation, zone, recordType).Inc()
}

func (m *Metrics) IncDNSRequest(operation, zone string, success bool) {
	if m == nil || !isValidOperation(operation) || zone == "" {
		return
	}
	m.dnsRequests.WithLabelValues(operation, zone, boolToResult(success)).Inc()
}

func (m *Metrics) IncHTTPRequest(success bool, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(boolToResult(success), strconv.Itoa(code)).Inc()
}

func (m *Metrics) IncCassetteRequest(operation string, success bool) {
	if m == nil || !isValidOperation(operation) {
		return
	}
	m.cassetteRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "create", "read", "update", "delete", "skip":
		return true
	}
	return false
}

func isValidRecordType(rt string) bool {
	switch rt {
	case "A", "AAAA", "CAA", "CNAME", "MX", "NS", "SRV", "TXT":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "dnsctl"

	m := &Metrics{
		registry: registry,

		commandRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_runs_total",
			Help:      "Total number of cli command runs",
		}, []string{"command", "status"}),

		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of cli command runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		dnsOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_operations_total",
			Help:      "Total DNS operations planned by the reconciler",
		}, []string{"operation", "zone", "type"}),

		dnsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_requests_total",
			Help:      "Total DNS provider requests",
		}, []string{"operation", "zone", "status"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total provider http requests",
		}, []string{"status", "code"}),

		cassetteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cassette_requests_total",
			Help:      "Total cassette store requests",
		}, []string{"operation", "status"}),
	}

	if register {
		registry.MustRegister(
			m.commandRuns,
			m.commandDuration,
			m.dnsOperations,
			m.dnsRequests,
			m.httpRequests,
			m.cassetteRequests,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
