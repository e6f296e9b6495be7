package operation

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-greybus/config"
	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/metrics"
	"github.com/dep2p/go-greybus/pkg/interfaces"
)

// Params 模块依赖项
type Params struct {
	fx.In

	HostDev    *hostdev.Device
	Dispatcher interfaces.Dispatcher
	Metrics    *metrics.Metrics `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
	UnifiedCfg *config.Config   `optional:"true"`
}

// ProvideCore 构造操作层核心
func ProvideCore(params Params) *Core {
	cfg := config.DefaultOperationConfig()
	if params.UnifiedCfg != nil {
		cfg = params.UnifiedCfg.Operation
	}

	return NewCore(params.HostDev, params.Dispatcher, params.Metrics,
		params.Clock, cfg.DefaultTimeout.Duration())
}

// lifecycleInput 生命周期钩子依赖项
type lifecycleInput struct {
	fx.In

	LC   fx.Lifecycle
	Core *Core
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return in.Core.Close()
		},
	})
}

// Module 操作层核心模块
var Module = fx.Module("core/operation",
	fx.Provide(ProvideCore),
	fx.Invoke(registerLifecycle),
)
