package operation

import (
	"errors"

	"github.com/dep2p/go-greybus/pkg/types"
)

// 结果闩锁状态机：ErrResultUnset → ErrInProgress → 终态（nil 或具体错误）。
//
//   - 初始态只允许迁移到 ErrInProgress，其他写入视为逻辑错误，
//     以 ErrMalfunction 顶替并大声记录；
//   - 终态首写胜出，之后的写入全部忽略（传输完成与取消竞争时
//     保证恰好一次完成任务被调度）；
//   - 把保留的未设置哨兵写为终态同样是逻辑错误，以 ErrMalfunction
//     顶替后照常闩锁，操作仍恰好完成一次。
//
// 闩锁锁收拢在 Core 上，粒度只覆盖单个 result 字段的读写。

// resultSet 尝试写入操作结果
//
// 返回 true 表示本次写入生效（调用方因此获得调度完成任务的资格）。
func (c *Core) resultSet(op *Operation, result error) bool {
	if errors.Is(result, types.ErrInProgress) {
		c.resultMu.Lock()
		prev := op.result
		if errors.Is(prev, types.ErrResultUnset) {
			op.result = result
		} else {
			op.result = types.ErrMalfunction
		}
		c.resultMu.Unlock()

		if !errors.Is(prev, types.ErrResultUnset) {
			logger.Error("操作重复进入在途状态", "id", op.id, "type", op.typ, "prev", prev)
		}
		return true
	}

	if errors.Is(result, types.ErrResultUnset) {
		// 保留哨兵不是合法终态：以内部故障哨兵顶替，照常走终态写入
		logger.Error("试图把未设置哨兵写为最终结果", "id", op.id, "type", op.typ)
		result = types.ErrMalfunction
	}

	c.resultMu.Lock()
	prev := op.result
	if errors.Is(prev, types.ErrInProgress) {
		op.result = result
	} else if errors.Is(prev, types.ErrResultUnset) {
		// 未进入在途状态就收到最终结果：核心不变量被破坏
		op.result = types.ErrMalfunction
	}
	c.resultMu.Unlock()

	if errors.Is(prev, types.ErrResultUnset) {
		logger.Error("在进入在途状态前写入最终结果", "id", op.id, "type", op.typ, "result", result)
	}
	return errors.Is(prev, types.ErrInProgress)
}

// resultRead 读取当前结果，不做状态断言
func (c *Core) resultRead(op *Operation) error {
	c.resultMu.Lock()
	defer c.resultMu.Unlock()
	return op.result
}

// Result 返回操作的最终结果
//
// 只应在完成之后调用；仍处于初始或在途状态说明调用时机有误。
func (op *Operation) Result() error {
	result := op.conn.core.resultRead(op)
	if errors.Is(result, types.ErrResultUnset) || errors.Is(result, types.ErrInProgress) {
		logger.Error("在操作完成前读取结果", "id", op.id, "type", op.typ, "result", result)
	}
	return result
}
