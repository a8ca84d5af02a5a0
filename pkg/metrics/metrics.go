// Package metrics provides Prometheus metrics for the price oracle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OracleHealthState is a gauge of the oracle health state
	// (0=primary, 1=secondary, 2=untrusted).
	OracleHealthState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_health_state",
			Help: "Current oracle health state (0=primary, 1=secondary, 2=untrusted)",
		},
		[]string{"pair"},
	)

	// PriceRequestsTotal is a counter of price requests by outcome.
	PriceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_requests_total",
			Help: "Total number of price requests served, by outcome",
		},
		[]string{"pair", "result"},
	)

	// PriceDeviationBps is a gauge of the last measured primary/secondary deviation.
	PriceDeviationBps = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "price_deviation_bps",
			Help: "Last observed deviation between primary and secondary sources in basis points",
		},
		[]string{"pair"},
	)

	// FeedValidationFailuresTotal is a counter of rejected feed readings by reason.
	FeedValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_validation_failures_total",
			Help: "Total number of feed readings rejected by the validator",
		},
		[]string{"feed", "reason"},
	)

	// ObservationsRecordedTotal is a counter of spot observations written to the accumulator.
	ObservationsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twap_observations_recorded_total",
			Help: "Total number of spot observations recorded into the TWAP accumulator",
		},
		[]string{"pair"},
	)

	// ConsultDuration is a histogram of TWAP consult latencies.
	ConsultDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twap_consult_duration_seconds",
			Help:    "Duration of TWAP consult operations",
			Buckets: []float64{.00001, .0001, .001, .01, .1},
		},
	)

	// KeeperErrorsTotal is a counter of keeper collection failures.
	KeeperErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_errors_total",
			Help: "Total number of keeper spot collection failures",
		},
		[]string{"source"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	// EventsEmittedTotal is a counter of oracle events by type.
	EventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_events_emitted_total",
			Help: "Total number of oracle events emitted",
		},
		[]string{"pair", "type"},
	)
)

// Init initializes the Prometheus metrics registry.
func Init() {
	prometheus.MustRegister(
		OracleHealthState,
		PriceRequestsTotal,
		PriceDeviationBps,
		FeedValidationFailuresTotal,
		ObservationsRecordedTotal,
		ConsultDuration,
		KeeperErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EventsEmittedTotal,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordHealthState records the oracle health state for a pair.
func RecordHealthState(pair string, state int) {
	OracleHealthState.WithLabelValues(pair).Set(float64(state))
}

// RecordPriceRequest records a served price request and its outcome.
func RecordPriceRequest(pair, result string) {
	PriceRequestsTotal.WithLabelValues(pair, result).Inc()
}

// RecordDeviation records the last observed source deviation in basis points.
func RecordDeviation(pair string, bps float64) {
	PriceDeviationBps.WithLabelValues(pair).Set(bps)
}

// RecordValidationFailure records a rejected feed reading.
func RecordValidationFailure(feed, reason string) {
	FeedValidationFailuresTotal.WithLabelValues(feed, reason).Inc()
}

// RecordObservation records a spot observation written to the accumulator.
func RecordObservation(pair string) {
	ObservationsRecordedTotal.WithLabelValues(pair).Inc()
}

// RecordConsult records a TWAP consult operation.
func RecordConsult(duration time.Duration) {
	ConsultDuration.Observe(duration.Seconds())
}

// RecordKeeperError records a keeper collection failure.
func RecordKeeperError(source string) {
	KeeperErrorsTotal.WithLabelValues(source).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordEvent records an emitted oracle event.
func RecordEvent(pair, eventType string) {
	EventsEmittedTotal.WithLabelValues(pair, eventType).Inc()
}
