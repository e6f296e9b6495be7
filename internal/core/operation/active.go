package operation

import (
	"fmt"

	"github.com/dep2p/go-greybus/pkg/types"
)

// 活跃操作登记：每次尝试发送前递增 active 计数，首次递增时把操作
// 挂入连接的在途集合；完成时递减，归零即摘除并唤醒取消会合条件。
// 计数由连接锁保护，锁只覆盖集合与计数的变更，绝不跨 I/O 持有。

// getActive 登记一次活跃，连接未启用时拒绝
func (op *Operation) getActive() error {
	conn := op.conn

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.state != StateEnabled {
		return fmt.Errorf("%w: cport %d -> %d", types.ErrNotConnected,
			conn.local, conn.remote)
	}

	op.active++
	if op.active == 1 {
		conn.ops = append(conn.ops, op)
	}
	return nil
}

// putActive 注销一次活跃，归零时摘除并唤醒等待者
func (op *Operation) putActive() {
	conn := op.conn
	core := conn.core

	conn.mu.Lock()
	op.active--
	idle := op.active == 0
	if idle {
		conn.removeOp(op)
	}
	if op.active < 0 {
		logger.Error("操作活跃计数下溢", "id", op.id, "type", op.typ)
	}
	conn.mu.Unlock()

	if idle && op.waiters.Load() > 0 {
		core.cancelMu.Lock()
		core.cancelCond.Broadcast()
		core.cancelMu.Unlock()
	}
}

// isActive 判断操作是否仍在途
func (op *Operation) isActive() bool {
	op.conn.mu.Lock()
	defer op.conn.mu.Unlock()
	return op.active > 0
}

// waitIdle 阻塞到活跃计数归零（取消的同步会合点）
func (op *Operation) waitIdle() {
	core := op.conn.core

	op.waiters.Add(1)
	core.cancelMu.Lock()
	for op.isActive() {
		core.cancelCond.Wait()
	}
	core.cancelMu.Unlock()
	op.waiters.Add(-1)
}
