// Package types 定义 Greybus 的基础类型
//
// 本文件定义错误分类体系以及与线上状态码的双向映射。
package types

import "errors"

// ============================================================================
//                              操作结果错误
// ============================================================================

var (
	// ErrInterrupted 操作被中断
	ErrInterrupted = errors.New("operation interrupted")

	// ErrTimedOut 操作超时
	ErrTimedOut = errors.New("operation timed out")

	// ErrNoMemory 内存不足
	ErrNoMemory = errors.New("out of memory")

	// ErrProtocolNotSupported 协议（操作码）不支持
	ErrProtocolNotSupported = errors.New("protocol not supported")

	// ErrMessageSize 消息尺寸不符（过大或过小）
	ErrMessageSize = errors.New("message size mismatch")

	// ErrInvalidArgument 无效参数
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRetry 对端要求重试
	ErrRetry = errors.New("retry requested")

	// ErrDeviceGone 设备不存在或已移除
	ErrDeviceGone = errors.New("device gone")

	// ErrMalfunction 内部故障哨兵
	//
	// 仅在核心不变量被破坏时记录（如重复进入 in-progress 状态、
	// 把保留哨兵写为最终结果）。观察到它说明实现有缺陷。
	ErrMalfunction = errors.New("implementation malfunction")

	// ErrUnknown 未知错误（兜底值，也是未映射内部错误的默认线上表示）
	ErrUnknown = errors.New("unknown I/O error")
)

// ============================================================================
//                              本地状态哨兵（不上线）
// ============================================================================

var (
	// ErrResultUnset 结果从未被设置（操作的初始状态）
	ErrResultUnset = errors.New("operation result never set")

	// ErrInProgress 请求已发出，结果尚未到达
	ErrInProgress = errors.New("operation in progress")

	// ErrCancelled 操作被本地取消
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotConnected 连接未启用
	ErrNotConnected = errors.New("connection not enabled")
)

// ============================================================================
//                              Status <-> error 映射
// ============================================================================

// StatusToError 将线上状态码映射为内部错误
//
// StatusSuccess 映射为 nil。未知状态码一律映射为 ErrUnknown。
func StatusToError(s Status) error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusInterrupted:
		return ErrInterrupted
	case StatusTimeout:
		return ErrTimedOut
	case StatusNoMemory:
		return ErrNoMemory
	case StatusProtocolBad:
		return ErrProtocolNotSupported
	case StatusOverflow:
		return ErrMessageSize
	case StatusInvalid:
		return ErrInvalidArgument
	case StatusRetry:
		return ErrRetry
	case StatusNonexistent:
		return ErrDeviceGone
	case StatusMalfunction:
		return ErrMalfunction
	case StatusUnknownError:
		return ErrUnknown
	default:
		return ErrUnknown
	}
}

// ErrorToStatus 将内部错误映射为响应消息中的线上状态码
//
// nil 映射为 StatusSuccess。未映射的错误（包括本地哨兵和
// 任意包装错误）一律映射为 StatusUnknownError。
func ErrorToStatus(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInterrupted):
		return StatusInterrupted
	case errors.Is(err, ErrTimedOut):
		return StatusTimeout
	case errors.Is(err, ErrNoMemory):
		return StatusNoMemory
	case errors.Is(err, ErrProtocolNotSupported):
		return StatusProtocolBad
	case errors.Is(err, ErrMessageSize):
		return StatusOverflow
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalid
	case errors.Is(err, ErrRetry):
		return StatusRetry
	case errors.Is(err, ErrDeviceGone):
		return StatusNonexistent
	case errors.Is(err, ErrMalfunction):
		return StatusMalfunction
	default:
		return StatusUnknownError
	}
}
