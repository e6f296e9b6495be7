package dispatcher

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-greybus/config"
	"github.com/dep2p/go-greybus/pkg/interfaces"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/dispatcher",
	fx.Provide(ProvideDispatcher),
	fx.Provide(func(d *Dispatcher) interfaces.Dispatcher { return d }),
	fx.Invoke(registerLifecycle),
)

// Params Fx 输入参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ProvideDispatcher 提供调度器
func ProvideDispatcher(p Params) *Dispatcher {
	workers := DefaultWorkers
	if p.UnifiedCfg != nil {
		workers = p.UnifiedCfg.Dispatcher.Workers
	}
	return New(workers)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.shutdownContext(ctx)
		},
	})
}
