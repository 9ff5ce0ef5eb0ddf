package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	BalanceAdjustments *prometheus.CounterVec
	BalanceAmount      prometheus.Histogram
	Overdrafts         prometheus.Counter
	Remittances        prometheus.Counter

	// Scope metrics
	ScopeExecutions *prometheus.CounterVec
	ScopeFallbacks  prometheus.Counter
	ScopeDuration   *prometheus.HistogramVec

	// Score metrics
	ScoreRecomputes *prometheus.CounterVec
	ScoreDuration   prometheus.Histogram
	ScoreCacheHits  *prometheus.CounterVec

	// Loan metrics
	LoanDecisions  *prometheus.CounterVec
	LoanDisbursals prometheus.Counter
	LoanRepayments prometheus.Counter

	// Escrow metrics
	EscrowTransitions *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		BalanceAdjustments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_balance_adjustments_total",
				Help: "Total balance adjustments by direction and transaction type",
			},
			[]string{"direction", "transaction_type"},
		),
		BalanceAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sarathi_balance_adjustment_amount",
			Help:    "Absolute amount of balance adjustments",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 20000, 100000},
		}),
		Overdrafts: f.NewCounter(prometheus.CounterOpts{
			Name: "sarathi_overdraft_attempts_total",
			Help: "Total refused debits",
		}),
		Remittances: f.NewCounter(prometheus.CounterOpts{
			Name: "sarathi_remittances_total",
			Help: "Total successful remittances",
		}),

		ScopeExecutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_scope_executions_total",
				Help: "Total coordinator scopes by mode and result",
			},
			[]string{"mode", "result"},
		),
		ScopeFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "sarathi_scope_fallbacks_total",
			Help: "Total scopes re-run without atomicity",
		}),
		ScopeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sarathi_scope_duration_seconds",
				Help:    "Duration of coordinator scopes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),

		ScoreRecomputes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_score_recomputes_total",
				Help: "Total score recomputations by result",
			},
			[]string{"result"},
		),
		ScoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sarathi_score_recompute_duration_seconds",
			Help:    "Duration of score recomputations",
			Buckets: prometheus.DefBuckets,
		}),
		ScoreCacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_score_lookups_total",
				Help: "Latest score lookups by source",
			},
			[]string{"source"},
		),

		LoanDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_loan_decisions_total",
				Help: "Total loan decisions by outcome and band",
			},
			[]string{"outcome", "band"},
		),
		LoanDisbursals: f.NewCounter(prometheus.CounterOpts{
			Name: "sarathi_loan_disbursals_total",
			Help: "Total loans disbursed",
		}),
		LoanRepayments: f.NewCounter(prometheus.CounterOpts{
			Name: "sarathi_loan_repayments_total",
			Help: "Total loan repayments",
		}),

		EscrowTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_escrow_transitions_total",
				Help: "Total escrow state transitions by target state",
			},
			[]string{"to"},
		),

		Notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_notifications_total",
				Help: "Total notification deliveries by result",
			},
			[]string{"result"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sarathi_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "sarathi_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"path"},
		),

		AuditLogsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sarathi_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
