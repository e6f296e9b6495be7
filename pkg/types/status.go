package types

// ============================================================================
//                              Status - 线上状态码
// ============================================================================

// Status 响应消息头中的单字节状态码
//
// 这是与任何 Greybus 协议端点互操作的线上契约，
// 取值与内部错误之间的映射见 errors.go。
type Status uint8

const (
	// StatusSuccess 操作成功
	StatusSuccess Status = 0x00
	// StatusInterrupted 操作被中断
	StatusInterrupted Status = 0x01
	// StatusTimeout 操作超时
	StatusTimeout Status = 0x02
	// StatusNoMemory 内存不足
	StatusNoMemory Status = 0x03
	// StatusProtocolBad 协议不支持
	StatusProtocolBad Status = 0x04
	// StatusOverflow 消息尺寸不符（过大或过小）
	StatusOverflow Status = 0x05
	// StatusInvalid 无效参数
	StatusInvalid Status = 0x06
	// StatusRetry 请求重试
	StatusRetry Status = 0x07
	// StatusNonexistent 设备不存在/已移除
	StatusNonexistent Status = 0x08
	// StatusUnknownError 未知错误（兜底值）
	StatusUnknownError Status = 0xFE
	// StatusMalfunction 内部故障（实现错误哨兵）
	StatusMalfunction Status = 0xFF
)

// String 返回状态码的字符串表示
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInterrupted:
		return "interrupted"
	case StatusTimeout:
		return "timeout"
	case StatusNoMemory:
		return "no memory"
	case StatusProtocolBad:
		return "protocol not supported"
	case StatusOverflow:
		return "message size mismatch"
	case StatusInvalid:
		return "invalid argument"
	case StatusRetry:
		return "retry requested"
	case StatusNonexistent:
		return "nonexistent device"
	case StatusMalfunction:
		return "malfunction"
	case StatusUnknownError:
		return "unknown error"
	default:
		return "unknown error"
	}
}
