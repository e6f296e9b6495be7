package operation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-greybus/pkg/types"
)

func newLatchedOp(t *testing.T, env *testEnv) *Operation {
	t.Helper()
	op, err := env.conn.NewOperation(0x01, 0, 0)
	require.NoError(t, err)
	t.Cleanup(op.Put)
	return op
}

func TestResultLatchFirstWriteWins(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	op := newLatchedOp(t, env)

	require.True(t, env.core.resultSet(op, types.ErrInProgress))
	require.True(t, env.core.resultSet(op, types.ErrTimedOut))

	// 终态之后的写入全部被忽略
	require.False(t, env.core.resultSet(op, types.ErrCancelled))
	require.False(t, env.core.resultSet(op, nil))
	require.ErrorIs(t, op.Result(), types.ErrTimedOut)
}

func TestResultLatchConcurrentWriters(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	op := newLatchedOp(t, env)
	require.True(t, env.core.resultSet(op, types.ErrInProgress))

	// N 个写者竞争，恰好一个胜出
	const n = 32
	var wg sync.WaitGroup
	var winsMu sync.Mutex
	wins := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if env.core.resultSet(op, types.ErrTimedOut) {
				winsMu.Lock()
				wins++
				winsMu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.ErrorIs(t, op.Result(), types.ErrTimedOut)
}

func TestResultLatchDoubleInProgress(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	op := newLatchedOp(t, env)

	require.True(t, env.core.resultSet(op, types.ErrInProgress))

	// 重复进入在途状态是逻辑错误，以内部故障哨兵顶替
	require.True(t, env.core.resultSet(op, types.ErrInProgress))
	require.ErrorIs(t, env.core.resultRead(op), types.ErrMalfunction)
}

func TestResultLatchSubstitutesUnsetSentinel(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	op := newLatchedOp(t, env)
	require.True(t, env.core.resultSet(op, types.ErrInProgress))

	// 把保留哨兵写为最终结果是逻辑错误：顶替为内部故障哨兵，
	// 闩锁照常落定，操作仍恰好完成一次
	require.True(t, env.core.resultSet(op, types.ErrResultUnset))
	require.ErrorIs(t, env.core.resultRead(op), types.ErrMalfunction)

	// 终态已落定，后续写入全部被忽略
	require.False(t, env.core.resultSet(op, types.ErrTimedOut))
	require.ErrorIs(t, op.Result(), types.ErrMalfunction)
}

func TestResultLatchFinalBeforeInProgress(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	op := newLatchedOp(t, env)

	// 未进入在途状态就写终态：核心不变量被破坏
	require.False(t, env.core.resultSet(op, types.ErrTimedOut))
	require.ErrorIs(t, env.core.resultRead(op), types.ErrMalfunction)
}

func TestResultLatchSuccessIsFinal(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	op := newLatchedOp(t, env)

	require.True(t, env.core.resultSet(op, types.ErrInProgress))
	require.True(t, env.core.resultSet(op, nil))
	require.NoError(t, op.Result())

	// 成功同样是终态
	require.False(t, env.core.resultSet(op, types.ErrTimedOut))
	require.NoError(t, op.Result())
}
