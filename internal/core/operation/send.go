package operation

import (
	"context"
	"fmt"
	"time"

	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

// opIDCycleMax 操作 ID 分配的回绕模数（ID 取值 1..65535，0 保留）
const opIDCycleMax = 65535

// Send 发送出站请求（异步）
//
// 分配操作 ID、闩锁在途状态、登记活跃后提交传输。
// 传输同步失败时回退登记并直接返回错误，操作不会进入调度器；
// 提交成功后立即返回，最终结果经完成回调送达。
func (op *Operation) Send(callback CompletionFunc) error {
	conn := op.conn
	core := conn.core

	if op.incoming {
		return fmt.Errorf("%w: cannot send an incoming operation", types.ErrInvalidArgument)
	}
	if callback == nil {
		return fmt.Errorf("%w: completion callback is required", types.ErrInvalidArgument)
	}

	// 回调在操作最终结果确定后于调度器上下文中执行
	op.callback = callback

	// 分配操作 ID 并写入请求消息头；0 保留给单向操作
	if op.unidirectional {
		op.id = types.OperationIDNone
	} else {
		cycle := conn.opCycle.Add(1)
		op.id = types.OperationID(cycle%opIDCycleMax + 1)
	}
	op.request.SetOperationID(op.id)

	core.resultSet(op, types.ErrInProgress)

	// 这份引用随完成任务释放
	op.Get()
	if err := op.getActive(); err != nil {
		op.Put()
		return err
	}

	op.startedAt = core.clk.Now()
	if err := conn.sendMessage(op.request); err != nil {
		op.putActive()
		op.Put()
		return err
	}

	core.met.RequestSent()
	return nil
}

// SendSync 发送出站请求并阻塞等待完成
//
// timeout 为 0 表示无限等待。超时触发取消并以超时结果返回；
// ctx 取消触发取消并以取消结果返回。返回闩锁的最终结果。
func (op *Operation) SendSync(ctx context.Context, timeout time.Duration) error {
	core := op.conn.core

	if err := op.Send(syncCallback); err != nil {
		return err
	}

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := core.clk.Timer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-op.completion:
	case <-timerC:
		op.Cancel(types.ErrTimedOut)
	case <-ctx.Done():
		op.Cancel(types.ErrCancelled)
	}

	return op.Result()
}

// syncCallback 同步发送的完成回调：唤醒等待者
//
// 等待者持有发起方引用，这里无需额外释放。
func syncCallback(op *Operation) {
	close(op.completion)
}

// ============================================================================
//                              一步式辅助接口
// ============================================================================

// RequestSync 发起一次同步请求/响应交换（核心默认超时）
//
// 返回拷贝出的响应载荷。
func (c *Connection) RequestSync(ctx context.Context, typ types.OperationType,
	request []byte, responseSize int) ([]byte, error) {
	return c.RequestSyncTimeout(ctx, typ, request, responseSize, c.core.defaultTimeout)
}

// RequestSyncTimeout 发起一次同步请求/响应交换
//
// 创建操作、拷入请求载荷、同步发送，成功后拷出响应载荷。
func (c *Connection) RequestSyncTimeout(ctx context.Context, typ types.OperationType,
	request []byte, responseSize int, timeout time.Duration) ([]byte, error) {

	op, err := c.NewOperation(typ, len(request), responseSize)
	if err != nil {
		return nil, err
	}
	defer op.Put()

	copy(op.request.Payload(), request)

	if err := op.SendSync(ctx, timeout); err != nil {
		logger.Error("同步操作失败", "conn", log.TruncateID(c.traceID, 8),
			"id", op.id, "type", fmt.Sprintf("0x%02x", uint8(typ)), "error", err)
		return nil, err
	}

	response := make([]byte, responseSize)
	copy(response, op.response.Payload())
	return response, nil
}

// SendUnidirectional 发送一条单向请求并等待传输完成
//
// 对端不会回送响应；等待的只是本端发送完成。
func (c *Connection) SendUnidirectional(ctx context.Context, typ types.OperationType,
	request []byte) error {

	op, err := c.NewUnidirectional(typ, len(request))
	if err != nil {
		return err
	}
	defer op.Put()

	copy(op.request.Payload(), request)
	return op.SendSync(ctx, c.core.defaultTimeout)
}
