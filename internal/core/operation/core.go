package operation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/internal/core/metrics"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

var logger = log.Logger("core/operation")

// Core 操作层核心上下文
//
// 收拢所有原本可能成为进程级全局量的共享状态：结果闩锁锁、
// 取消会合条件、完成调度器、指标与主机设备。每个进程按需创建，
// 显式关闭。
type Core struct {
	hd   *hostdev.Device
	disp interfaces.Dispatcher
	met  *metrics.Metrics
	clk  clock.Clock

	defaultTimeout time.Duration

	// resultMu 只保护各操作的 result 字段（见 result.go）
	resultMu sync.Mutex

	// 取消会合条件：任一操作活跃计数归零时广播
	cancelMu   sync.Mutex
	cancelCond *sync.Cond

	connMu sync.Mutex
	conns  map[*Connection]struct{}

	closed atomic.Bool
}

// NewCore 创建核心上下文并接管主机设备的发送完成路由
//
// met 可为 nil（指标关闭）；clk 为 nil 时使用真实时钟。
func NewCore(hd *hostdev.Device, disp interfaces.Dispatcher, met *metrics.Metrics,
	clk clock.Clock, defaultTimeout time.Duration) *Core {

	if clk == nil {
		clk = clock.New()
	}

	c := &Core{
		hd:             hd,
		disp:           disp,
		met:            met,
		clk:            clk,
		defaultTimeout: defaultTimeout,
		conns:          make(map[*Connection]struct{}),
	}
	c.cancelCond = sync.NewCond(&c.cancelMu)

	hd.SetSentHandler(c.messageSent)
	return c
}

// HostDevice 返回核心绑定的主机设备
func (c *Core) HostDevice() *hostdev.Device {
	return c.hd
}

// Close 关闭核心：断开所有连接并停止调度器
//
// 幂等。各步骤的错误聚合后一并返回。
func (c *Core) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.connMu.Lock()
	conns := make([]*Connection, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	c.connMu.Unlock()

	var err error
	for _, conn := range conns {
		err = multierr.Append(err, conn.Close())
	}
	err = multierr.Append(err, c.disp.Close())

	logger.Info("操作层核心已关闭", "connections", len(conns))
	return err
}

func (c *Core) removeConnection(conn *Connection) {
	c.connMu.Lock()
	delete(c.conns, conn)
	c.connMu.Unlock()
}

// ============================================================================
//                              发送完成路由
// ============================================================================

// messageSent 主机设备上报发送完成后的分派
//
// 响应消息：只需注销活跃并释放引用，出错时记录；
// 请求消息：发送失败或单向操作时闩锁结果并调度完成任务，
// 否则静待响应到达，这里无事可做。
func (c *Core) messageSent(m interfaces.Message, result error) {
	msg, ok := m.(*message.Message)
	if !ok {
		logger.Error("发送完成回调携带未知消息类型")
		return
	}
	op, ok := msg.Owner().(*Operation)
	if !ok {
		logger.Error("发送完成的消息未绑定操作")
		return
	}

	if msg == op.response {
		if result != nil {
			logger.Error("发送响应出错", "id", op.id, "type", op.typ, "error", result)
		}
		op.putActive()
		op.Put()
	} else if result != nil || op.unidirectional {
		if c.resultSet(op, result) {
			c.disp.Submit(func() { c.operationWork(op) })
		}
	}
}

// ============================================================================
//                              完成任务
// ============================================================================

// operationWork 调度器上运行的完成任务
//
// 出站操作执行完成回调；入站操作执行协议处理器并回送响应。
// 随后注销活跃登记、释放调度任务持有的引用。
func (c *Core) operationWork(op *Operation) {
	if op.incoming {
		c.requestHandle(op)
		close(op.handled)
	} else {
		op.callback(op)
	}

	c.met.Completed(types.ErrorToStatus(c.resultRead(op)), op.startedAt)

	op.putActive()
	op.Put()
}

// requestHandle 分派入站请求到注册的协议处理器
//
// 操作码未注册时按协议不支持处理。处理器返回后回送响应
// （单向操作除外）；响应发送失败只记录，不重试。
func (c *Core) requestHandle(op *Operation) {
	conn := op.conn

	var status error
	if handler := conn.handler(op.typ); handler != nil {
		status = handler(op)
	} else {
		logger.Error("收到未注册类型的请求",
			"conn", log.TruncateID(conn.traceID, 8), "type", fmt.Sprintf("0x%02x", uint8(op.typ)))
		status = types.ErrProtocolNotSupported
	}

	if err := c.responseSend(op, status); err != nil {
		logger.Error("发送响应失败",
			"conn", log.TruncateID(conn.traceID, 8), "id", op.id,
			"type", fmt.Sprintf("0x%02x", uint8(op.typ)), "error", err)
	}
}

// responseSend 闩锁入站操作的结果并回送响应
//
// 处理器未预分配响应时补一个空响应；单向操作只闩锁不发送。
func (c *Core) responseSend(op *Operation, status error) error {
	conn := op.conn

	if op.response == nil && !op.unidirectional {
		if _, err := op.AllocResponse(0); err != nil {
			return err
		}
	}

	if !c.resultSet(op, status) {
		logger.Error("请求结果已被设置", "id", op.id, "type", op.typ)
		return types.ErrMalfunction
	}

	// 请求方不关心单向操作的结局
	if op.unidirectional {
		return nil
	}

	// 发送完成回调到达时释放这份引用
	op.Get()
	if err := op.getActive(); err != nil {
		op.Put()
		return err
	}

	op.response.SetResult(types.ErrorToStatus(status))
	if err := conn.sendMessage(op.response); err != nil {
		op.putActive()
		op.Put()
		return err
	}
	return nil
}
