package greybus

import (
	"errors"

	"github.com/dep2p/go-greybus/pkg/types"
)

// 门面层错误
var (
	// ErrNoDriver 未提供传输驱动
	ErrNoDriver = errors.New("greybus: no host driver provided")

	// ErrAlreadyStarted 核心已经启动
	ErrAlreadyStarted = errors.New("greybus: already started")

	// ErrNotStarted 核心尚未启动
	ErrNotStarted = errors.New("greybus: not started")

	// ErrStopped 核心已停止
	ErrStopped = errors.New("greybus: stopped")
)

// 常用操作结果错误的再导出，调用方无需直接依赖 pkg/types
var (
	ErrTimedOut             = types.ErrTimedOut
	ErrCancelled            = types.ErrCancelled
	ErrNotConnected         = types.ErrNotConnected
	ErrProtocolNotSupported = types.ErrProtocolNotSupported
	ErrMessageSize          = types.ErrMessageSize
	ErrInvalidArgument      = types.ErrInvalidArgument
)
