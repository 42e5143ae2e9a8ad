package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline provides observability for invoice ingestion.
type Pipeline struct {
	// Invoices processed by final status (POSTED, REJECTED, ERRORED)
	Processed *prometheus.CounterVec

	// Validation diagnostics by code
	Diagnostics *prometheus.CounterVec

	// Malformed elements skipped while parsing
	ParseWarnings prometheus.Counter

	// ERP posting attempts by outcome (ok, error)
	ERPPosts *prometheus.CounterVec

	// End-to-end duration of one file
	ProcessLatency prometheus.Histogram

	// Distribution of anomaly z-scores
	AnomalyScore prometheus.Histogram
}

// NewPipeline creates the ingestion metrics on reg. A nil reg creates
// unregistered collectors.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "invoiceagent_invoices_processed_total",
			Help: "Invoices processed by final status",
		}, []string{"status"}),

		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "invoiceagent_validation_diagnostics_total",
			Help: "Validation diagnostics reported by code",
		}, []string{"code"}),

		ParseWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "invoiceagent_parse_warnings_total",
			Help: "Malformed segment elements skipped while parsing",
		}),

		ERPPosts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "invoiceagent_erp_posts_total",
			Help: "ERP vendor bill posting attempts by outcome",
		}, []string{"outcome"}),

		ProcessLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoiceagent_process_duration_seconds",
			Help:    "Duration of ingesting one inbound file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}),

		AnomalyScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoiceagent_anomaly_score",
			Help:    "Vendor amount z-scores",
			Buckets: []float64{-3, -2, -1, 0, 1, 2, 3},
		}),
	}
}

// IncrementProcessed records a file's final status.
func (m *Pipeline) IncrementProcessed(status string) {
	if m != nil {
		m.Processed.WithLabelValues(status).Inc()
	}
}

// IncrementDiagnostic records one validation diagnostic.
func (m *Pipeline) IncrementDiagnostic(code string) {
	if m != nil {
		m.Diagnostics.WithLabelValues(code).Inc()
	}
}

// AddParseWarnings records skipped elements.
func (m *Pipeline) AddParseWarnings(n int) {
	if m != nil && n > 0 {
		m.ParseWarnings.Add(float64(n))
	}
}

// IncrementERPPost records an ERP posting outcome.
func (m *Pipeline) IncrementERPPost(outcome string) {
	if m != nil {
		m.ERPPosts.WithLabelValues(outcome).Inc()
	}
}

// ObserveProcessLatency records how long one file took.
func (m *Pipeline) ObserveProcessLatency(d time.Duration) {
	if m != nil {
		m.ProcessLatency.Observe(d.Seconds())
	}
}

// ObserveAnomalyScore records a vendor z-score.
func (m *Pipeline) ObserveAnomalyScore(score float64) {
	if m != nil {
		m.AnomalyScore.Observe(score)
	}
}

// MockERP provides observability for the mock ERP server.
type MockERP struct {
	// Requests by route pattern and status code
	Requests *prometheus.CounterVec

	// Bills created, excluding idempotent replays
	BillsCreated prometheus.Counter

	// Request latency by route pattern
	RequestLatency *prometheus.HistogramVec
}

// NewMockERP creates the mock ERP metrics on reg.
func NewMockERP(reg prometheus.Registerer) *MockERP {
	f := promauto.With(reg)
	return &MockERP{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mock_erp_requests_total",
			Help: "Mock ERP requests by route and status code",
		}, []string{"route", "code"}),

		BillsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "mock_erp_bills_created_total",
			Help: "Vendor bills stored for the first time",
		}),

		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mock_erp_request_duration_seconds",
			Help:    "Mock ERP request latency by route",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"route"}),
	}
}

// ObserveRequest records one handled request.
func (m *MockERP) ObserveRequest(route, code string, d time.Duration) {
	if m != nil {
		m.Requests.WithLabelValues(route, code).Inc()
		m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}

// IncrementBillsCreated records a newly stored bill.
func (m *MockERP) IncrementBillsCreated() {
	if m != nil {
		m.BillsCreated.Inc()
	}
}

// WriteTextfile dumps everything g gathers to path in the Prometheus text
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
