package operation

// 取消路径。取消对调用方是同步的：无论底层中止是否异步完成，
// 返回前都会在取消会合条件上等到操作的活跃计数归零。
// 取消幂等：重复取消或在自然完成之后取消都安全（闩锁已是终态，
// 跳过传输中止，会合等待立即通过）。

// Cancel 取消一个出站操作
//
// 闩锁给定的取消结果；若本次闩锁胜出，请求传输中止在途发送
// 并调度完成任务。随后阻塞到活跃计数归零。
// 不得在非阻塞上下文中调用。
func (op *Operation) Cancel(reason error) {
	core := op.conn.core

	if op.incoming {
		logger.Error("对入站操作调用出站取消", "id", op.id, "type", op.typ)
		return
	}

	if core.resultSet(op, reason) {
		core.hd.MessageCancel(op.request)
		core.met.Cancelled()
		core.disp.Submit(func() { core.operationWork(op) })
	}

	op.waitIdle()
}

// CancelIncoming 取消一个入站操作
//
// 先等处理任务交出响应，再视闩锁结局行事：结果已定说明响应
// 已在途，中止该响应消息；闩锁胜出说明响应从未发出，无需中止。
// 单向操作没有响应，直接会合等待。
func (op *Operation) CancelIncoming(reason error) {
	core := op.conn.core

	if !op.incoming {
		logger.Error("对出站操作调用入站取消", "id", op.id, "type", op.typ)
		return
	}

	if !op.unidirectional {
		// 确保处理任务已提交响应，才能安全中止它
		<-op.handled

		if !core.resultSet(op, reason) {
			if op.response != nil {
				core.hd.MessageCancel(op.response)
			}
		}
		core.met.Cancelled()
	}

	op.waitIdle()
}
