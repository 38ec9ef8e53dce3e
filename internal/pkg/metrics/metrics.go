package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 見積もりの結果（result: valid, unknown_ticket_type, invalid_quantity, sold_out, invalid_input）
	QuotesTotal *prometheus.CounterVec

	// 予約試行の結果（status: succeeded, failed, rejected, unauthenticated, in_progress）
	BookingsTotal *prometheus.CounterVec

	// 予約送信サービスの処理時間（status: succeeded, failed）
	SubmissionDuration *prometheus.HistogramVec

	// 送信中の予約数
	SubmissionsInFlight prometheus.Gauge

	// イベントスナップショットのキャッシュ参照（result: hit, miss, error）
	EventCacheLookups *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		QuotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_quotes_total",
				Help: "Total number of ticket selection quotes by result",
			},
			[]string{"result"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_attempts_total",
				Help: "Total number of booking attempts by outcome",
			},
			[]string{"status"},
		),
		SubmissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booking_submission_duration_seconds",
				Help:    "Time spent in the booking submission service",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		SubmissionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "booking_submissions_in_flight",
				Help: "Current number of booking submissions in progress",
			},
		),
		EventCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_cache_lookups_total",
				Help: "Event snapshot cache lookups by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotesTotal,
		m.BookingsTotal,
		m.SubmissionDuration,
		m.SubmissionsInFlight,
		m.EventCacheLookups,
	)

	return m
}

// NewNop はどこにも登録しないメトリクスを作成する（テスト用）
func NewNop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
