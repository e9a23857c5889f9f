// Package metrics はGinサービス向けのPrometheusメトリクスを提供する。
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeLabelKey はルート名ラベルをGinコンテキストに設定するためのキー。
const routeLabelKey = "metrics_route"

// HTTP はHTTPリクエストに関するメトリクスの集合。
type HTTP struct {
	registry *prometheus.Registry
	// requests はルート・メソッド・ステータスごとのリクエスト数。
	requests *prometheus.CounterVec
	// duration はルートごとの処理時間。
	duration *prometheus.HistogramVec
	// upstreamErrors は上流サービスへの転送失敗数。
	upstreamErrors *prometheus.CounterVec
}

// NewHTTP はnamespace付きのメトリクスを専用のレジストリに登録して返す。
// サーバーごとにレジストリを分けるため、同一プロセスで複数生成できる。
func NewHTTP(namespace string) *HTTP {
	m := &HTTP{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream forwards",
			},
			[]string{"route", "reason"},
		),
	}
	m.registry.MustRegister(m.requests, m.duration, m.upstreamErrors)
	return m
}

// Middleware はリクエスト数と処理時間を記録するGinミドルウェアを返す。
// ルート名はSetRouteで設定された値、無ければ登録済みのルートパターン、
// どちらも無ければ "unmatched" になる。
func (m *HTTP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.GetString(routeLabelKey)
		if route == "" {
			route = c.FullPath()
		}
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// SetRoute はメトリクスのルート名ラベルを設定する。
func SetRoute(c *gin.Context, name string) {
	c.Set(routeLabelKey, name)
}

// UpstreamError は上流サービスへの転送失敗を記録する。
func (m *HTTP) UpstreamError(route, reason string) {
	m.upstreamErrors.WithLabelValues(route, reason).Inc()
}

// Handler は/metrics用のGinハンドラを返す。
func (m *HTTP) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
