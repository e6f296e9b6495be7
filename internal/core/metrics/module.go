package metrics

import (
	"go.uber.org/fx"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-greybus/config"
)

// Params 模块依赖项
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Registry   prometheus.Registerer `optional:"true"`
}

// ProvideMetrics 根据配置构造指标集合
//
// 指标关闭时返回 nil，调用方持有的 nil 指针仍然可安全使用。
func ProvideMetrics(params Params) *Metrics {
	cfg := config.DefaultMetricsConfig()
	if params.UnifiedCfg != nil {
		cfg = params.UnifiedCfg.Metrics
	}

	if !cfg.Enabled {
		return nil
	}
	return New(params.Registry)
}

// Module 指标模块
var Module = fx.Module("core/metrics",
	fx.Provide(ProvideMetrics),
)
