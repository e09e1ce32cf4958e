package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Recipient outcomes
const (
	OutcomeSent        = "sent"
	OutcomeDuplicate   = "duplicate"
	OutcomeUnknownKind = "unknown_kind"
	OutcomeFailed      = "failed"
)

// Row statuses
const (
	RowProcessed = "processed"
	RowMalformed = "malformed"
)

// Metrics holds the Prometheus metrics of one outreach run
type Metrics struct {
	RowsTotal           *prometheus.CounterVec
	RecipientsTotal     *prometheus.CounterVec
	MessagesSentTotal   *prometheus.CounterVec
	SendDurationSeconds prometheus.Histogram

	SentRecordSize     prometheus.Gauge
	RunStartTimestamp  prometheus.Gauge
	RunDurationSeconds prometheus.Gauge
	RunInterrupted     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_rows_total",
				Help: "Roster rows by processing status",
			},
			[]string{"status"},
		),
		RecipientsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_recipients_total",
				Help: "Recipients by outcome",
			},
			[]string{"outcome"},
		),
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_messages_sent_total",
				Help: "Messages handed to the transport, by recipient domain",
			},
			[]string{"domain"},
		),
		SendDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "outreach_send_duration_seconds",
				Help:    "Time spent in the transport per message",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SentRecordSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_sent_record_size",
				Help: "Number of addresses in the sent-record after the run",
			},
		),
		RunStartTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_run_start_timestamp_seconds",
				Help: "Unix time the run started",
			},
		),
		RunDurationSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_run_duration_seconds",
				Help: "Wall time of the run",
			},
		),
		RunInterrupted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_run_interrupted",
				Help: "1 if the run was interrupted before finishing the roster",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.RowsTotal,
		m.RecipientsTotal,
		m.MessagesSentTotal,
		m.SendDurationSeconds,
		m.SentRecordSize,
		m.RunStartTimestamp,
		m.RunDurationSeconds,
		m.RunInterrupted,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncRows increments the row counter
func IncRows(status string) {
	if m := Global(); m != nil {
		m.RowsTotal.WithLabelValues(status).Inc()
	}
}

// IncRecipients increments the recipient outcome counter
func IncRecipients(outcome string) {
	if m := Global(); m != nil {
		m.RecipientsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveSent records a handed-off message
func ObserveSent(domain string, took time.Duration) {
	if m := Global(); m != nil {
		m.MessagesSentTotal.WithLabelValues(domain).Inc()
		m.SendDurationSeconds.Observe(took.Seconds())
	}
}

// SetSentRecordSize sets the sent-record size gauge
func SetSentRecordSize(n int) {
	if m := Global(); m != nil {
		m.SentRecordSize.Set(float64(n))
	}
}

// RunStarted marks the start of a run
func RunStarted(at time.Time) {
	if m := Global(); m != nil {
		m.RunStartTimestamp.Set(float64(at.Unix()))
	}
}

// RunFinished records the run duration and whether it was interrupted
func RunFinished(took time.Duration, interrupted bool) {
	m := Global()
	if m == nil {
		return
	}
	m.RunDurationSeconds.Set(took.Seconds())
	if interrupted {
		m.RunInterrupted.Set(1)
	} else {
		m.RunInterrupted.Set(0)
	}
}
