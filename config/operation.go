package config

import "time"

// OperationConfig 操作层配置
type OperationConfig struct {
	// DefaultTimeout 同步操作的默认超时；0 表示无限等待
	DefaultTimeout Duration `json:"default_timeout"`
}

// DefaultOperationConfig 返回默认操作层配置
func DefaultOperationConfig() OperationConfig {
	return OperationConfig{
		DefaultTimeout: Duration(1000 * time.Millisecond),
	}
}

// Validate 验证配置，非法取值回退默认
func (c *OperationConfig) Validate() {
	if c.DefaultTimeout < 0 {
		c.DefaultTimeout = DefaultOperationConfig().DefaultTimeout
	}
}
