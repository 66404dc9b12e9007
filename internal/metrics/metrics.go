// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// バックエンド呼び出しの結果ラベル
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeTransport = "transport"
	OutcomeBlocked   = "blocked"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイ・訪問者レジストリ・メディアプロキシから利用する。
type MetricsCollector interface {
	RecordBackendRequest(operation, outcome string, duration time.Duration)
	RecordBackendStatus(statusCode int)
	SetActiveVisitors(n int)
	RecordVisitorEvicted()
	RecordMediaFetch(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendRequests *prometheus.CounterVec
	backendStatus   *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	activeVisitors  prometheus.Gauge
	visitorsEvicted prometheus.Counter
	mediaFetches    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsaic_backend_requests_total",
			Help: "バックエンドAPI呼び出しの合計数（操作・結果別）",
		}, []string{"operation", "outcome"}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsaic_backend_status_total",
			Help: "バックエンドのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsaic_backend_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		activeVisitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newsaic_active_visitors",
			Help: "保持中の訪問者セッション数",
		}),
		visitorsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsaic_visitors_evicted_total",
			Help: "期限切れまたは容量超過で破棄された訪問者セッションの合計数",
		}),
		mediaFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsaic_media_fetch_total",
			Help: "サムネイルプロキシの取得数（結果別）",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendStatus,
		c.backendLatency,
		c.activeVisitors,
		c.visitorsEvicted,
		c.mediaFetches,
	)

	return c
}

// RecordBackendRequest はバックエンド呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordBackendRequest(operation, outcome string, duration time.Duration) {
	c.backendRequests.WithLabelValues(operation, outcome).Inc()
	c.backendLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBackendStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordBackendStatus(statusCode int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetActiveVisitors は保持中の訪問者数を設定する。
func (c *Collector) SetActiveVisitors(n int) {
	c.activeVisitors.Set(float64(n))
}

// RecordVisitorEvicted は訪問者セッションの破棄を記録する。
func (c *Collector) RecordVisitorEvicted() {
	c.visitorsEvicted.Inc()
}

// RecordMediaFetch はサムネイル取得の結果を記録する。
func (c *Collector) RecordMediaFetch(outcome string) {
	c.mediaFetches.WithLabelValues(outcome).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordBackendRequest(string, string, time.Duration) {}
func (Nop) RecordBackendStatus(int)                            {}
func (Nop) SetActiveVisitors(int)                              {}
func (Nop) RecordVisitorEvicted()                              {}
func (Nop) RecordMediaFetch(string)                            {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
