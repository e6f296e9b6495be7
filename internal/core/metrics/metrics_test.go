package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-greybus/config"
	"github.com/dep2p/go-greybus/pkg/types"
)

func TestCountersMove(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RequestSent()
	m.RequestSent()
	m.RequestReceived()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsSent))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsRecv))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.inFlight))

	m.Completed(types.StatusSuccess, time.Now())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.inFlight))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.completed.WithLabelValues(types.StatusSuccess.String())))

	m.Cancelled()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cancelled))

	m.FrameDropped("short")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.dropped.WithLabelValues("short")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	// nil 指针的所有记录方法都是空操作
	m.RequestSent()
	m.RequestReceived()
	m.Completed(types.StatusSuccess, time.Time{})
	m.Cancelled()
	m.FrameDropped("whatever")
}

func TestProvideMetrics(t *testing.T) {
	m := ProvideMetrics(Params{Registry: prometheus.NewRegistry()})
	assert.NotNil(t, m)

	// 指标关闭时返回 nil，调用方持有的 nil 指针依然可安全使用
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false
	assert.Nil(t, ProvideMetrics(Params{UnifiedCfg: cfg}))
}
