package greybus

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-greybus/config"
	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 传输驱动（必填）
	driver interfaces.HostDriver

	// 传输协商参数
	bufferSizeMax int
	numCPorts     int

	// 统一配置
	config *config.Config

	// 注入的时钟（测试用）
	clock clock.Clock

	// 指标注册表
	registry prometheus.Registerer
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		bufferSizeMax: message.SizeMin,
		numCPorts:     256,
		config:        config.NewConfig(),
	}
}

// apply 应用全部选项
func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// WithDriver 设置主机传输驱动
func WithDriver(driver interfaces.HostDriver) Option {
	return func(o *options) error {
		if driver == nil {
			return ErrNoDriver
		}
		o.driver = driver
		return nil
	}
}

// WithBufferSizeMax 设置传输的最大帧尺寸
//
// 不得低于协议最小值；超过协议上限时注册阶段会收紧。
func WithBufferSizeMax(size int) Option {
	return func(o *options) error {
		if size < message.SizeMin {
			return fmt.Errorf("buffer size %d below protocol minimum %d", size, message.SizeMin)
		}
		o.bufferSizeMax = size
		return nil
	}
}

// WithNumCPorts 设置 CPort 数量上限
func WithNumCPorts(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("invalid number of cports: %d", n)
		}
		o.numCPorts = n
		return nil
	}
}

// WithConfig 使用指定的统一配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		o.config = cfg
		return nil
	}
}

// WithClock 注入时钟（超时测试用）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithPrometheusRegistry 使用指定的指标注册表
func WithPrometheusRegistry(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registry = reg
		return nil
	}
}
