// Package interfaces 定义 Greybus 核心与外部协作者之间的公共接口
//
// 本文件定义主机设备（Host Device）契约，抽象底层物理传输。
// 核心不关心传输如何管理缓冲池或链路，只依赖这里的收发语义。
package interfaces

import "github.com/dep2p/go-greybus/pkg/types"

// Message 主机驱动可见的消息视图
//
// 一条完整的帧（消息头 + 载荷）。消息由其所属操作独占所有，
// 传输只在发送期间借用；驱动不得在 MessageSent 之后继续引用缓冲区。
type Message interface {
	// Bytes 返回完整帧（头 + 载荷）
	Bytes() []byte
}

// HostDriver 定义主机传输驱动接口
//
// 由具体传输实现（USB、WebSocket、回环等）。契约：
//   - MessageSend 异步发送；被接受的每次发送之后必须恰好回调一次
//     HostDevice.MessageSent，或者同步返回错误且之后不再回调。
//   - MessageCancel 同步阻塞；返回后该消息保证不会再被发送
//     （若已发出，完成回调会反映取消或传输观察到的状态）。
//     不得在非阻塞上下文中调用。
type HostDriver interface {
	// MessageSend 提交一条消息到指定 CPort
	MessageSend(cport types.CPortID, msg Message) error

	// MessageCancel 中止一条在途消息（阻塞）
	MessageCancel(msg Message)
}

// HostDevice 核心暴露给传输驱动的回调面
//
// 驱动通过它向核心上报发送完成与入站数据。
type HostDevice interface {
	// MessageSent 发送完成回调，result 为 nil 表示发送成功
	//
	// 每次被接受的 MessageSend 恰好调用一次。
	MessageSent(msg Message, result error)

	// DataReceived 入站帧回调
	//
	// 每收到一帧调用一次；本层不处理重复或乱序投递。
	// 回调内不得阻塞：只做字节拷贝与任务入队。
	DataReceived(cport types.CPortID, data []byte)

	// BufferSizeMax 返回传输协商的最大帧尺寸（字节）
	BufferSizeMax() int
}
