package config

// DispatcherConfig 完成调度器配置
type DispatcherConfig struct {
	// Workers 工作协程数
	Workers int `json:"workers"`
}

// DefaultDispatcherConfig 返回默认调度器配置
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers: 4,
	}
}

// Validate 验证配置，非法取值回退默认
func (c *DispatcherConfig) Validate() {
	if c.Workers <= 0 {
		c.Workers = DefaultDispatcherConfig().Workers
	}
}
