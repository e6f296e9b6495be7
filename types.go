package greybus

import (
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/types"
)

// 基础类型的再导出，外部调用方经由门面使用
type (
	// CPortID 逻辑端口编号
	CPortID = types.CPortID

	// OperationID 操作标识符
	OperationID = types.OperationID

	// OperationType 操作类型（协议操作码）
	OperationType = types.OperationType

	// Status 线上状态码
	Status = types.Status

	// Operation 协议处理器可见的入站操作视图
	Operation = interfaces.Operation

	// RequestHandler 入站请求处理器
	RequestHandler = interfaces.RequestHandler

	// HostDriver 主机传输驱动接口
	HostDriver = interfaces.HostDriver

	// HostDevice 核心暴露给传输驱动的回调面
	HostDevice = interfaces.HostDevice
)
