// Package interfaces 定义 Greybus 核心与外部协作者之间的公共接口
//
// 本文件定义协议处理器视角的操作契约。
package interfaces

import "github.com/dep2p/go-greybus/pkg/types"

// Operation 协议处理器可见的入站操作视图
//
// 处理器通过它读取请求载荷，并在返回前按需预分配响应载荷。
type Operation interface {
	// ID 返回操作 ID（0 表示单向请求）
	ID() types.OperationID

	// Type 返回请求的操作码
	Type() types.OperationType

	// RequestPayload 返回请求载荷（只读视角，有效期到处理器返回为止）
	RequestPayload() []byte

	// AllocResponse 预分配带载荷的响应消息，返回可写入的载荷切片
	//
	// 响应继承请求的操作 ID，类型为请求类型置响应位。
	// 处理器不调用时，核心会在发送阶段补一个空响应。
	AllocResponse(payloadSize int) ([]byte, error)

	// IsUnidirectional 判断是否为单向操作（不期待响应）
	IsUnidirectional() bool
}

// RequestHandler 入站请求处理器
//
// 按操作码注册；在调度器上下文中执行，允许阻塞。
// 返回值作为响应的状态：nil 表示成功，其他按 types.ErrorToStatus 上线。
type RequestHandler func(op Operation) error

// Dispatcher 延迟执行上下文
//
// 完成回调与入站请求处理在这里运行，与接收路径解耦。
type Dispatcher interface {
	// Submit 入队一个任务（不阻塞调用方）
	Submit(task func())

	// Close 停止调度器并等待已入队任务执行完毕
	Close() error
}
