package greybus

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-greybus/internal/core/dispatcher"
	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/metrics"
	"github.com/dep2p/go-greybus/internal/core/operation"
	"github.com/dep2p/go-greybus/pkg/interfaces"
)

// deviceBinder 可回绑主机设备的驱动（回环、WebSocket 等内置传输实现）
type deviceBinder interface {
	Bind(interfaces.HostDevice)
}

// buildFxApp 组装 Fx 应用
//
// 模块按依赖顺序加载：
//  1. 配置与驱动注入
//  2. 主机设备注册（参数校验、CPort 分配器）
//  3. 调度器 → 指标 → 操作层核心
//  4. 核心组件回填到门面
func buildFxApp(o *options, core *Core) (*fx.App, error) {
	if o.driver == nil {
		return nil, ErrNoDriver
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		// 配置注入
		fx.Supply(o.config),

		// 主机设备
		fx.Provide(func() (*hostdev.Device, error) {
			dev, err := hostdev.New(o.driver, o.bufferSizeMax, o.numCPorts)
			if err != nil {
				return nil, err
			}
			if binder, ok := o.driver.(deviceBinder); ok {
				binder.Bind(dev)
			}
			return dev, nil
		}),

		// 调度器
		dispatcher.Module,
	}

	// 指标（条件加载）
	if o.config.Metrics.Enabled {
		if o.registry != nil {
			modules = append(modules, fx.Provide(func() prometheus.Registerer {
				return o.registry
			}))
		}
		modules = append(modules, metrics.Module)
	}

	// 注入的时钟（条件加载）
	if o.clock != nil {
		modules = append(modules, fx.Provide(func() clock.Clock {
			return o.clock
		}))
	}

	// 操作层核心
	modules = append(modules, operation.Module)

	// 核心组件回填到门面
	modules = append(modules, fx.Invoke(func(opCore *operation.Core, dev *hostdev.Device) {
		core.op = opCore
		core.hd = dev
	}))

	// 禁用 Fx 日志输出（避免干扰用户日志）
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	return fx.New(modules...), nil
}
