// Package metrics defines the Prometheus instruments of the scan and fee phases.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inference outcomes recorded per factory.
const (
	FeeDetermined   = "determined"
	FeeUndetermined = "undetermined"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	WindowsTotal       *prometheus.CounterVec
	WindowDuration     prometheus.Histogram
	LogsFetched        prometheus.Counter
	LastProcessedBlock prometheus.Gauge
	PoolsDiscovered    *prometheus.CounterVec
	PoolsInRegistry    prometheus.Gauge
	DecodeErrors       *prometheus.CounterVec
	PersistenceErrors  *prometheus.CounterVec
	RPCCalls           *prometheus.CounterVec
	FeeInference       *prometheus.CounterVec
	TradesEvaluated    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer, subsystem string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WindowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "scan_windows_total",
			Help:      "Block windows processed, labeled by final status.",
		}, []string{"status"}),
		WindowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "scan_window_duration_seconds",
			Help:      "Time to fetch one block window including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		LogsFetched: factory.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "scan_logs_fetched_total",
			Help:      "Factory logs returned by the log source.",
		}),
		LastProcessedBlock: factory.NewGauge(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "scan_last_processed_block",
			Help:      "Upper bound of the last window the scanner finished.",
		}),
		PoolsDiscovered: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "pools_discovered_total",
			Help:      "Pools added to the registry, labeled by protocol.",
		}, []string{"protocol"}),
		PoolsInRegistry: factory.NewGauge(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "pools_in_registry",
			Help:      "Pools currently held in the registry.",
		}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "decode_errors_total",
			Help:      "Logs skipped because they could not be decoded, labeled by event.",
		}, []string{"event"}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "persistence_errors_total",
			Help:      "Failed writes, labeled by sink.",
		}, []string{"sink"}),
		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "rpc_calls_total",
			Help:      "RPC requests issued, labeled by method and outcome.",
		}, []string{"method", "outcome"}),
		FeeInference: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "fee_inference_total",
			Help:      "Factories processed by fee inference, labeled by outcome.",
		}, []string{"outcome"}),
		TradesEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "fee_trades_evaluated_total",
			Help:      "Trades passed to the fee estimator, labeled by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveWindow(status string, logs int, elapsed time.Duration, to uint64) {
	if m == nil {
		return
	}
	m.WindowsTotal.WithLabelValues(status).Inc()
	m.WindowDuration.Observe(elapsed.Seconds())
	m.LogsFetched.Add(float64(logs))
	m.LastProcessedBlock.Set(float64(to))
}

func (m *Metrics) PoolAdded(protocol string, total int) {
	if m == nil {
		return
	}
	m.PoolsDiscovered.WithLabelValues(protocol).Inc()
	m.PoolsInRegistry.Set(float64(total))
}

func (m *Metrics) DecodeError(event string) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(event).Inc()
}

func (m *Metrics) PersistenceError(sink string) {
	if m == nil {
		return
	}
	m.PersistenceErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) RPCCall(method string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RPCCalls.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) FeeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.FeeInference.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TradeEvaluated(outcome string) {
	if m == nil {
		return
	}
	m.TradesEvaluated.WithLabelValues(outcome).Inc()
}
