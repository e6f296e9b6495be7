package operation

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

// State 连接状态
type State int

const (
	// StateDisabled 未启用：不接受新操作，入站字节直接丢弃
	StateDisabled State = iota

	// StateEnabled 已启用：正常收发
	StateEnabled

	// StateDisconnecting 正在断开：在途操作逐一取消，不再登记新活跃
	StateDisconnecting
)

// String 返回状态的可读表示
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Connection 一对 CPort 之间的逻辑连接
//
// 持有在途操作集合与按操作码注册的请求处理器表。
// 连接创建后处于未启用状态，Enable 之后才开始收发。
type Connection struct {
	core *Core
	hd   *hostdev.Device

	local  types.CPortID
	remote types.CPortID

	// traceID 日志关联用的连接实例标识
	traceID string

	// opCycle 操作 ID 分配计数器
	opCycle atomic.Uint32

	mu       sync.Mutex
	state    State
	ops      []*Operation
	handlers map[types.OperationType]interfaces.RequestHandler
	closed   bool
}

// CreateConnection 在核心上创建一条连接
//
// 本端 CPort 自动分配并绑定入站路由；remote 为对端 CPort。
// 新连接处于未启用状态。
func (c *Core) CreateConnection(remote types.CPortID) (*Connection, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: core is closed", types.ErrNotConnected)
	}

	local, err := c.hd.CPortIDAlloc()
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		core:     c,
		hd:       c.hd,
		local:    local,
		remote:   remote,
		traceID:  uuid.New().String(),
		handlers: make(map[types.OperationType]interfaces.RequestHandler),
	}

	if err := c.hd.RegisterRecv(local, conn.recv); err != nil {
		c.hd.CPortIDFree(local)
		return nil, err
	}

	c.connMu.Lock()
	c.conns[conn] = struct{}{}
	c.connMu.Unlock()

	logger.Debug("连接已创建", "conn", log.TruncateID(conn.traceID, 8),
		"cport_local", local, "cport_remote", remote)
	return conn, nil
}

// LocalCPort 返回本端 CPort 编号
func (c *Connection) LocalCPort() types.CPortID {
	return c.local
}

// RemoteCPort 返回对端 CPort 编号
func (c *Connection) RemoteCPort() types.CPortID {
	return c.remote
}

// State 返回连接当前状态
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ============================================================================
//                              生命周期
// ============================================================================

// Enable 启用连接
//
// 已启用时为空操作；正在断开时拒绝。
func (c *Connection) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateEnabled:
		return nil
	case StateDisconnecting:
		return fmt.Errorf("%w: cport %d is disconnecting", types.ErrNotConnected, c.local)
	}
	if c.closed {
		return fmt.Errorf("%w: cport %d is closed", types.ErrNotConnected, c.local)
	}

	c.state = StateEnabled
	logger.Debug("连接已启用", "conn", log.TruncateID(c.traceID, 8), "cport_local", c.local)
	return nil
}

// Disable 停用连接
//
// 先切到断开状态挡住新活跃登记，再逐一同步取消在途操作：
// 出站操作以取消结果完成，入站操作等处理器交出响应后中止。
// 已停用时为空操作。
func (c *Connection) Disable() {
	c.mu.Lock()
	if c.state != StateEnabled {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnecting

	ops := make([]*Operation, len(c.ops))
	copy(ops, c.ops)
	for _, op := range ops {
		op.Get()
	}
	c.mu.Unlock()

	for _, op := range ops {
		if op.incoming {
			op.CancelIncoming(types.ErrCancelled)
		} else {
			op.Cancel(types.ErrCancelled)
		}
		op.Put()
	}

	c.mu.Lock()
	c.state = StateDisabled
	c.mu.Unlock()

	logger.Debug("连接已停用", "conn", log.TruncateID(c.traceID, 8),
		"cport_local", c.local, "cancelled", len(ops))
}

// Close 停用连接并释放其 CPort
//
// 幂等。
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.Disable()
	c.hd.UnregisterRecv(c.local)
	c.hd.CPortIDFree(c.local)
	c.core.removeConnection(c)

	logger.Debug("连接已关闭", "conn", log.TruncateID(c.traceID, 8), "cport_local", c.local)
	return nil
}

// ============================================================================
//                              处理器注册表
// ============================================================================

// RegisterHandler 注册某操作码的请求处理器
//
// 操作码不得为无效值或携带响应位；重复注册报错。
func (c *Connection) RegisterHandler(typ types.OperationType, h interfaces.RequestHandler) error {
	if typ == types.OperationTypeInvalid || typ.IsResponse() {
		return fmt.Errorf("%w: invalid handler type 0x%02x", types.ErrInvalidArgument, uint8(typ))
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", types.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.handlers[typ]; exists {
		return fmt.Errorf("%w: handler for type 0x%02x already registered",
			types.ErrInvalidArgument, uint8(typ))
	}
	c.handlers[typ] = h
	return nil
}

// UnregisterHandler 注销某操作码的请求处理器
func (c *Connection) UnregisterHandler(typ types.OperationType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, typ)
}

// handler 查找操作码对应的处理器
func (c *Connection) handler(typ types.OperationType) interfaces.RequestHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers[typ]
}

// ============================================================================
//                              在途操作集合
// ============================================================================

// findOutgoing 按 ID 查找在途的出站操作（跳过入站）
//
// 命中时附带一份引用，调用方用毕释放。
func (c *Connection) findOutgoing(id types.OperationID) *Operation {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, op := range c.ops {
		if !op.incoming && op.id == id {
			op.Get()
			return op
		}
	}
	return nil
}

// removeOp 从在途集合摘除操作（调用方持有 c.mu）
func (c *Connection) removeOp(op *Operation) {
	for i, o := range c.ops {
		if o == op {
			c.ops = append(c.ops[:i], c.ops[i+1:]...)
			return
		}
	}
}

// sendMessage 把消息提交给主机设备，目的地为对端 CPort
func (c *Connection) sendMessage(m *message.Message) error {
	return c.hd.MessageSend(c.remote, m)
}
