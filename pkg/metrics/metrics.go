// Package metrics Prometheus指标
//
// 指标分三组:
//  1. HTTP:请求数、耗时、处理中的请求数
//  2. 借阅业务:借出、续借、归还、网关回调、对账失败
//  3. 基础设施:熔断器、发件箱投递
//
// 所有指标在包初始化时通过promauto注册到默认Registry,
// 业务代码直接引用变量即可,不存在"忘记初始化导致nil指针"的问题。
//
// 命名规范:Counter以_total结尾,Histogram以单位结尾(_seconds),
// 标签只使用有限取值(op/result/method),不要使用user_id这类高基数标签。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// 结果标签取值
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)

var (
	// HTTPRequestsTotal HTTP请求总数
	// 标签:method、path(路由模板,不是原始URL)、status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求耗时(秒)",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "正在处理的HTTP请求数",
		},
	)

	// LendingOperationsTotal 借阅操作总数
	// 标签:op(create/renew/close/prepare/confirm_cash/callback/repair)、result
	LendingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lending_operations_total",
			Help:      "借阅操作总数",
		},
		[]string{"op", "result"},
	)

	// LendingOperationDuration 借阅操作耗时
	// 借出与归还都在一个数据库事务内完成,正常情况下在几十毫秒内
	LendingOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lending_operation_duration_seconds",
			Help:      "借阅操作耗时(秒)",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	// PaymentsCollectedTotal 已收款笔数
	// 标签:method(cash/vnpay)
	PaymentsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_collected_total",
			Help:      "已收款笔数",
		},
		[]string{"method"},
	)

	// GatewayCallbacksTotal 网关回调结果
	// 标签:status(success/failed/paid_but_finalize_failed)
	GatewayCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_callbacks_total",
			Help:      "支付网关回调处理结果",
		},
		[]string{"status"},
	)

	// ReconciliationFailuresTotal 已收款但归还失败(需人工处理,应配置告警)
	ReconciliationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_failures_total",
			Help:      "已收款但归还流程失败的次数",
		},
	)

	// CopyStateMismatchTotal 副本持有者与借阅记录不一致(需人工处理,应配置告警)
	CopyStateMismatchTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_state_mismatch_total",
			Help:      "副本状态与借阅记录不一致的次数",
		},
	)

	// TxRetriesTotal 因死锁或锁等待超时而重跑的事务
	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retries_total",
			Help:      "数据库事务因死锁重试的次数",
		},
	)

	// CircuitBreakerState 熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)",
		},
		[]string{"name"},
	)

	// CircuitBreakerRequests 熔断器请求总数
	// 标签:name、result(success/failure/rejected)
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// MessagesPublishedTotal 消息发布总数
	// 标签:exchange、routing_key、result
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)

	// OutboxBacklog 最近一次轮询拉取到的待投递事件数
	OutboxBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_backlog",
			Help:      "最近一次轮询的待投递事件数",
		},
	)
)

// ObserveOperation 记录一次借阅操作的结果与耗时
//
//	start := time.Now()
//	defer func() { metrics.ObserveOperation("renew", start, err) }()
func ObserveOperation(op string, start time.Time, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	LendingOperationsTotal.WithLabelValues(op, result).Inc()
	LendingOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
