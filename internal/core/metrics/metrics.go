package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-greybus/pkg/types"
)

// Metrics 操作层指标集合
//
// 零值或 nil 指针均可安全调用，所有方法退化为空操作。
type Metrics struct {
	requestsSent  prometheus.Counter
	requestsRecv  prometheus.Counter
	completed     *prometheus.CounterVec
	cancelled     prometheus.Counter
	dropped       *prometheus.CounterVec
	inFlight      prometheus.Gauge
	completionDur prometheus.Histogram
}

// New 创建并注册操作层指标
//
// reg 为 nil 时使用私有注册表：同一进程可以并存多个核心，
// 不会在共享注册表上撞名。
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		requestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "requests_sent_total",
			Help:      "出站请求消息总数",
		}),
		requestsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "requests_received_total",
			Help:      "入站请求消息总数",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "completed_total",
			Help:      "按最终状态分类的操作完成总数",
		}, []string{"status"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "cancelled_total",
			Help:      "被主动取消的操作总数",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "frames_dropped_total",
			Help:      "按原因分类的入站帧丢弃总数",
		}, []string{"reason"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "in_flight",
			Help:      "当前活跃操作数",
		}),
		completionDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "greybus",
			Subsystem: "operation",
			Name:      "completion_seconds",
			Help:      "操作从发出到完成的耗时分布",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	reg.MustRegister(
		m.requestsSent, m.requestsRecv, m.completed,
		m.cancelled, m.dropped, m.inFlight, m.completionDur,
	)
	return m
}

// RequestSent 记录一次出站请求
func (m *Metrics) RequestSent() {
	if m == nil {
		return
	}
	m.requestsSent.Inc()
	m.inFlight.Inc()
}

// RequestReceived 记录一次入站请求
func (m *Metrics) RequestReceived() {
	if m == nil {
		return
	}
	m.requestsRecv.Inc()
	m.inFlight.Inc()
}

// Completed 记录一次操作完成
func (m *Metrics) Completed(status types.Status, started time.Time) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(status.String()).Inc()
	m.inFlight.Dec()
	if !started.IsZero() {
		m.completionDur.Observe(time.Since(started).Seconds())
	}
}

// Cancelled 记录一次主动取消
func (m *Metrics) Cancelled() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}

// FrameDropped 记录一次入站帧丢弃
func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}
