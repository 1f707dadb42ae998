package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// 回放指标
	barsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barsim_bars_processed_total",
			Help: "Total number of bars processed",
		},
		[]string{"symbol", "interval"},
	)

	barDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barsim_bar_process_duration_seconds",
			Help:    "Single bar processing duration in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
	)

	sessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barsim_sessions_started_total",
			Help: "Total number of backtest sessions started",
		},
	)

	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barsim_sessions_finished_total",
			Help: "Total number of backtest sessions finished",
		},
		[]string{"status"},
	)

	// 订单指标
	orderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barsim_order_total",
			Help: "Total number of orders placed",
		},
		[]string{"symbol", "side", "kind", "status"},
	)

	tradeClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barsim_trade_closed_total",
			Help: "Total number of trades closed",
		},
		[]string{"symbol", "side", "outcome"},
	)

	// 账户指标（按会话）
	equityGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "barsim_equity",
			Help: "Current session equity",
		},
		[]string{"session"},
	)

	balanceGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "barsim_balance",
			Help: "Current session realized balance",
		},
		[]string{"session"},
	)

	maxDrawdownGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "barsim_max_drawdown_percent",
			Help: "Session max drawdown percentage",
		},
		[]string{"session"},
	)

	// 数据源指标
	feedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barsim_feed_requests_total",
			Help: "Total number of kline fetch requests",
		},
		[]string{"source", "status"},
	)

	feedCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barsim_feed_cache_total",
			Help: "Kline cache lookups by result",
		},
		[]string{"result"},
	)

	// 系统指标
	cpuPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barsim_system_cpu_percent",
			Help: "Process host CPU usage percentage",
		},
	)

	memoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barsim_system_memory_percent",
			Help: "Process host memory usage percentage",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barsim_goroutines",
			Help: "Number of goroutines",
		},
	)
)

// PrometheusMetrics 指标采集入口
type PrometheusMetrics struct{}

var instance *PrometheusMetrics

// GetPrometheusMetrics 获取全局指标实例
func GetPrometheusMetrics() *PrometheusMetrics {
	once.Do(func() {
		instance = &PrometheusMetrics{}
	})
	return instance
}

// RecordBar 记录一根K线的处理
func (pm *PrometheusMetrics) RecordBar(symbol, interval string, duration time.Duration) {
	barsProcessed.WithLabelValues(symbol, interval).Inc()
	barDuration.Observe(duration.Seconds())
}

// RecordSessionStart 记录会话开始
func (pm *PrometheusMetrics) RecordSessionStart() {
	sessionsStarted.Inc()
}

// RecordSessionFinish 记录会话结束
func (pm *PrometheusMetrics) RecordSessionFinish(status string) {
	sessionsFinished.WithLabelValues(status).Inc()
}

// RecordOrder 记录订单
func (pm *PrometheusMetrics) RecordOrder(symbol, side, kind, status string) {
	orderTotal.WithLabelValues(symbol, side, kind, status).Inc()
}

// RecordTradeClosed 记录平仓
func (pm *PrometheusMetrics) RecordTradeClosed(symbol, side string, pnl float64) {
	outcome := "win"
	if pnl < 0 {
		outcome = "loss"
	}
	tradeClosedTotal.WithLabelValues(symbol, side, outcome).Inc()
}

// SetAccountState 更新会话账户指标
func (pm *PrometheusMetrics) SetAccountState(session string, balance, equity, maxDrawdown float64) {
	balanceGauge.WithLabelValues(session).Set(balance)
	equityGauge.WithLabelValues(session).Set(equity)
	maxDrawdownGauge.WithLabelValues(session).Set(maxDrawdown)
}

// RecordFeedRequest 记录数据拉取请求
func (pm *PrometheusMetrics) RecordFeedRequest(source, status string) {
	feedRequests.WithLabelValues(source, status).Inc()
}

// RecordCacheLookup 记录缓存命中情况
func (pm *PrometheusMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	feedCacheHits.WithLabelValues(result).Inc()
}

// SetSystemState 更新系统指标
func (pm *PrometheusMetrics) SetSystemState(cpu, memory float64, goroutines int) {
	cpuPercent.Set(cpu)
	memoryPercent.Set(memory)
	goroutineCount.Set(float64(goroutines))
}
