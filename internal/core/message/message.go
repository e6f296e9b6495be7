package message

import (
	"fmt"

	"github.com/dep2p/go-greybus/pkg/types"
)

// Message 一条帧化消息（头 + 载荷）
//
// 消息在其生命周期内由所属操作独占；主机传输只在发送期间借用缓冲区。
type Message struct {
	buffer      []byte
	payloadSize int

	// 所属操作的不透明反向引用，由操作层绑定
	owner any
}

// New 分配一条出站消息
//
// 缓冲区大小为 HeaderSize + payloadSize，并初始化消息头：
// size 与 type 在此写入；操作 ID 在发送时分配（请求）或从请求
// 拷贝（响应）；result 在响应发送前写入。
// 消息总长超过 bufferSizeMax 时返回错误。
func New(typ types.OperationType, payloadSize int, bufferSizeMax int) (*Message, error) {
	messageSize := HeaderSize + payloadSize
	if messageSize > bufferSizeMax {
		return nil, fmt.Errorf("%w: requested message size too big (%d > %d)",
			types.ErrMessageSize, messageSize, bufferSizeMax)
	}

	m := &Message{
		buffer:      make([]byte, messageSize),
		payloadSize: payloadSize,
	}

	hdr := Header{
		Size: uint16(messageSize),
		Type: typ,
	}
	hdr.EncodeTo(m.buffer)

	return m, nil
}

// NewIncoming 分配一条入站消息缓冲区
//
// 消息头不做初始化，将被到达的数据整体覆盖。
func NewIncoming(payloadSize int) *Message {
	return &Message{
		buffer:      make([]byte, HeaderSize+payloadSize),
		payloadSize: payloadSize,
	}
}

// Bytes 返回完整帧（头 + 载荷）
func (m *Message) Bytes() []byte {
	return m.buffer
}

// Header 解码并返回当前消息头
func (m *Message) Header() Header {
	hdr, _ := DecodeHeader(m.buffer)
	return hdr
}

// Payload 返回载荷切片（指向缓冲区内部）
func (m *Message) Payload() []byte {
	return m.buffer[HeaderSize:]
}

// PayloadSize 返回载荷长度
func (m *Message) PayloadSize() int {
	return m.payloadSize
}

// Size 返回消息总长（头 + 载荷）
func (m *Message) Size() int {
	return HeaderSize + m.payloadSize
}

// SetOperationID 写入消息头中的操作 ID（小端序）
func (m *Message) SetOperationID(id types.OperationID) {
	m.buffer[2] = byte(id)
	m.buffer[3] = byte(id >> 8)
}

// SetResult 写入消息头中的状态字节
func (m *Message) SetResult(status types.Status) {
	m.buffer[5] = byte(status)
}

// CopyFrom 将一条完整的线上帧拷贝进缓冲区前部
//
// 用于入站请求与响应路径：只拷贝 n 字节（可能只有消息头）。
func (m *Message) CopyFrom(data []byte) {
	copy(m.buffer, data)
}

// BindOwner 绑定所属操作（由操作层在创建时调用一次）
func (m *Message) BindOwner(owner any) {
	m.owner = owner
}

// Owner 返回所属操作的不透明引用
func (m *Message) Owner() any {
	return m.owner
}
