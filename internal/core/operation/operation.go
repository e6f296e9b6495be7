package operation

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/types"
)

// CompletionFunc 出站操作的完成回调
//
// 在调度器上下文中执行。回调负责读取最终结果，
// 并释放自己持有的操作引用。
type CompletionFunc func(op *Operation)

// Operation 一次请求/响应交换
//
// 所有权采用引用计数：发起方、连接的在途集合与排队的调度任务
// 各持一份引用，最后一份释放时销毁并归还两条消息缓冲区。
type Operation struct {
	conn *Connection

	// id 在发送时分配（出站）或取自线上消息头（入站）
	id  types.OperationID
	typ types.OperationType

	incoming       bool
	unidirectional bool

	request  *message.Message
	response *message.Message

	// result 由 Core.resultMu 保护，见 result.go
	result error

	refs    atomic.Int32
	waiters atomic.Int32

	// active 由 conn.mu 保护；>0 时位于连接的在途集合中
	active int

	callback   CompletionFunc
	completion chan struct{}

	// handled 入站操作专用：处理任务提交响应后关闭
	handled chan struct{}

	startedAt time.Time
}

// 确保实现 interfaces.Operation 接口
var _ interfaces.Operation = (*Operation)(nil)

// NewOperation 创建一个出站操作
//
// 请求与响应缓冲区在此一并分配；操作 ID 推迟到发送时分配。
// typ 不得为保留无效值，也不得携带响应标志位。
func (c *Connection) NewOperation(typ types.OperationType, requestSize, responseSize int) (*Operation, error) {
	return c.newOutgoing(typ, requestSize, responseSize, false)
}

// NewUnidirectional 创建一个单向出站操作（不期待响应）
func (c *Connection) NewUnidirectional(typ types.OperationType, requestSize int) (*Operation, error) {
	return c.newOutgoing(typ, requestSize, 0, true)
}

func (c *Connection) newOutgoing(typ types.OperationType, requestSize, responseSize int, unidirectional bool) (*Operation, error) {
	if typ == types.OperationTypeInvalid {
		return nil, fmt.Errorf("%w: invalid operation type", types.ErrInvalidArgument)
	}
	if typ.IsResponse() {
		return nil, fmt.Errorf("%w: operation type 0x%02x carries the response bit",
			types.ErrInvalidArgument, uint8(typ))
	}

	op := &Operation{
		conn:           c,
		typ:            typ,
		unidirectional: unidirectional,
		result:         types.ErrResultUnset,
		completion:     make(chan struct{}),
	}
	op.refs.Store(1)

	req, err := message.New(typ, requestSize, c.hd.BufferSizeMax())
	if err != nil {
		return nil, err
	}
	req.BindOwner(op)
	op.request = req

	// 出站操作的响应缓冲区预先分配，接收路径直接拷贝线上帧
	if _, err := op.AllocResponse(responseSize); err != nil {
		return nil, err
	}

	return op, nil
}

// newIncoming 基于到达的请求帧创建入站操作
//
// 帧已通过长度校验；ID 为 0 标记单向请求。
func (c *Connection) newIncoming(id types.OperationID, typ types.OperationType, data []byte) (*Operation, error) {
	if len(data) > c.hd.BufferSizeMax() {
		return nil, fmt.Errorf("%w: incoming request of %d bytes exceeds buffers (%d)",
			types.ErrMessageSize, len(data), c.hd.BufferSizeMax())
	}

	op := &Operation{
		conn:           c,
		id:             id,
		typ:            typ,
		incoming:       true,
		unidirectional: id == types.OperationIDNone,
		result:         types.ErrResultUnset,
		completion:     make(chan struct{}),
		handled:        make(chan struct{}),
	}
	op.refs.Store(1)

	req := message.NewIncoming(len(data) - message.HeaderSize)
	req.BindOwner(op)
	req.CopyFrom(data)
	op.request = req

	return op, nil
}

// ============================================================================
//                              引用计数
// ============================================================================

// Get 增加一份引用
func (op *Operation) Get() {
	op.refs.Add(1)
}

// Put 释放一份引用，最后一份触发销毁
func (op *Operation) Put() {
	n := op.refs.Add(-1)
	if n == 0 {
		op.destroy()
	} else if n < 0 {
		logger.Error("操作引用计数下溢", "id", op.id, "type", op.typ)
	}
}

// destroy 最后一份引用释放时执行，归还两条消息缓冲区
func (op *Operation) destroy() {
	if op.isActive() {
		logger.Error("销毁仍处于活跃状态的操作", "id", op.id, "type", op.typ)
	}
	op.request = nil
	op.response = nil
}

// ============================================================================
//                              访问器
// ============================================================================

// ID 返回操作 ID（0 表示单向）
func (op *Operation) ID() types.OperationID {
	return op.id
}

// Type 返回请求的操作码
func (op *Operation) Type() types.OperationType {
	return op.typ
}

// Connection 返回操作所属的连接
func (op *Operation) Connection() *Connection {
	return op.conn
}

// IsIncoming 判断是否为入站操作
func (op *Operation) IsIncoming() bool {
	return op.incoming
}

// IsUnidirectional 判断是否为单向操作
func (op *Operation) IsUnidirectional() bool {
	return op.unidirectional
}

// RequestPayload 返回请求载荷
func (op *Operation) RequestPayload() []byte {
	return op.request.Payload()
}

// ResponsePayload 返回响应载荷
//
// 对出站操作，在完成回调观察到成功结果之后读取才有意义。
func (op *Operation) ResponsePayload() []byte {
	if op.response == nil {
		return nil
	}
	return op.response.Payload()
}

// AllocResponse 分配响应消息并返回可写入的载荷切片
//
// 响应原样继承请求消息头中的操作 ID（线上字节序），
// 类型为请求类型置响应标志位；状态字节在发送前写入。
func (op *Operation) AllocResponse(payloadSize int) ([]byte, error) {
	resp, err := message.New(op.typ.Response(), payloadSize, op.conn.hd.BufferSizeMax())
	if err != nil {
		return nil, err
	}
	resp.BindOwner(op)
	resp.SetOperationID(op.request.Header().OperationID)
	op.response = resp
	return resp.Payload(), nil
}
