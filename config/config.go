// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Dispatcher.Workers = 8
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import "encoding/json"

// Config 是 Greybus 核心的完整配置结构
//
// 配置按照功能模块组织：
//   - Dispatcher: 完成调度器（工作池）
//   - Operation: 操作层默认值（超时等）
//   - Metrics: 指标收集
type Config struct {
	// Dispatcher 调度器配置
	Dispatcher DispatcherConfig `json:"dispatcher"`

	// Operation 操作层配置
	Operation OperationConfig `json:"operation"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Dispatcher: DefaultDispatcherConfig(),
		Operation:  DefaultOperationConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// FromJSON 从 JSON 数据加载配置
//
// 未出现的字段保持默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置并修复超出范围的取值
//
// 采用宽容策略：非法取值回退到默认值而不是报错。
func (c *Config) Validate() error {
	c.Dispatcher.Validate()
	c.Operation.Validate()
	return nil
}
