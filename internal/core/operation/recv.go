package operation

import (
	"fmt"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

// 接收路径。在传输回调上下文中执行，只做校验、拷贝与任务入队，
// 绝不阻塞。畸形帧一律丢弃并记录日志，不向对端发任何否定信号：
// 对端依赖超时恢复（阅后即焚语义）。

// recv 连接的入站帧入口，每帧调用一次
func (c *Connection) recv(data []byte) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state != StateEnabled {
		logger.Warn("连接未启用，丢弃入站字节",
			"conn", log.TruncateID(c.traceID, 8), "bytes", len(data))
		c.core.met.FrameDropped("disabled")
		return
	}

	hdr, err := message.DecodeHeader(data)
	if err != nil {
		logger.Error("收到短帧", "conn", log.TruncateID(c.traceID, 8), "bytes", len(data))
		c.core.met.FrameDropped("short")
		return
	}

	msgSize := int(hdr.Size)
	if msgSize < message.HeaderSize {
		logger.Error("消息头声明长度非法",
			"conn", log.TruncateID(c.traceID, 8), "declared", msgSize)
		c.core.met.FrameDropped("malformed")
		return
	}
	if len(data) < msgSize {
		logger.Error("收到不完整消息",
			"conn", log.TruncateID(c.traceID, 8), "id", hdr.OperationID,
			"type", fmt.Sprintf("0x%02x", uint8(hdr.Type)),
			"received", len(data), "declared", msgSize)
		c.core.met.FrameDropped("incomplete")
		return
	}

	if hdr.Type.IsResponse() {
		c.recvResponse(hdr, data[:msgSize])
	} else {
		c.recvRequest(hdr, data[:msgSize])
	}
}

// recvResponse 入站响应：匹配在途出站操作，闩锁结果并调度完成
//
// 找不到匹配操作不算线上协议错误（操作可能已完成或已被取消），
// 只表现为一条丢失的响应。重复投递由闩锁天然免疫：第二次闩锁
// 失败，既不拷贝也不调度。
func (c *Connection) recvResponse(hdr message.Header, data []byte) {
	if hdr.OperationID == types.OperationIDNone {
		logger.Error("响应携带无效操作 ID", "conn", log.TruncateID(c.traceID, 8))
		c.core.met.FrameDropped("invalid-id")
		return
	}

	op := c.findOutgoing(hdr.OperationID)
	if op == nil {
		logger.Error("收到无主响应", "conn", log.TruncateID(c.traceID, 8),
			"id", hdr.OperationID, "type", fmt.Sprintf("0x%02x", uint8(hdr.Type)))
		c.core.met.FrameDropped("unknown-id")
		return
	}

	result := types.StatusToError(hdr.Result)

	// 成功状态要求响应长度与预期严格一致
	expected := op.response.Size()
	if result == nil && len(data) != expected {
		logger.Error("响应长度不符", "conn", log.TruncateID(c.traceID, 8),
			"id", hdr.OperationID, "received", len(data), "expected", expected)
		result = fmt.Errorf("%w: response %d bytes, expected %d",
			types.ErrMessageSize, len(data), expected)
	}

	// 状态异常时丢弃载荷，只拷贝消息头
	n := len(data)
	if result != nil {
		n = message.HeaderSize
	}

	if c.core.resultSet(op, result) {
		op.response.CopyFrom(data[:n])
		c.core.disp.Submit(func() { c.core.operationWork(op) })
	}

	op.Put()
}

// recvRequest 入站请求：建立入站操作并调度处理任务
//
// ID 为 0 标记单向请求，处理后不回送响应。
func (c *Connection) recvRequest(hdr message.Header, data []byte) {
	op, err := c.newIncoming(hdr.OperationID, hdr.Type, data)
	if err != nil {
		logger.Error("无法建立入站操作",
			"conn", log.TruncateID(c.traceID, 8), "id", hdr.OperationID, "error", err)
		c.core.met.FrameDropped("alloc")
		return
	}

	if err := op.getActive(); err != nil {
		logger.Warn("入站请求被拒绝",
			"conn", log.TruncateID(c.traceID, 8), "id", hdr.OperationID, "error", err)
		op.Put()
		return
	}

	op.startedAt = c.core.clk.Now()
	c.core.met.RequestReceived()

	// 初始引用在处理任务结束时释放
	if c.core.resultSet(op, types.ErrInProgress) {
		c.core.disp.Submit(func() { c.core.operationWork(op) })
	}
}
