package operation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/types"
)

// respondLast 取出最近发出的请求帧并回灌一条响应
func respondLast(t *testing.T, env *testEnv, status types.Status, payload []byte) {
	t.Helper()
	require.Eventually(t, func() bool { return env.driver.sentCount() > 0 },
		time.Second, time.Millisecond)

	_, msg := env.driver.lastSent()
	frame := buildResponse(msg.Bytes(), status, payload)
	env.hd.DataReceived(env.conn.LocalCPort(), frame)
}

func TestRequestResponseRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	done := make(chan error, 1)
	go func() {
		resp, err := env.conn.RequestSyncTimeout(context.Background(), 0x01,
			[]byte{0xAA}, 1, 0)
		if err == nil && len(resp) == 1 && resp[0] == 0xBB {
			done <- nil
		} else {
			done <- err
		}
	}()

	respondLast(t, env, types.StatusSuccess, []byte{0xBB})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("synchronous exchange did not complete")
	}
}

func TestResponseSizeMismatchRejected(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	done := make(chan error, 1)
	go func() {
		_, err := env.conn.RequestSyncTimeout(context.Background(), 0x01,
			nil, 1, 0)
		done <- err
	}()

	// 成功状态下响应长度必须与预期严格一致
	respondLast(t, env, types.StatusSuccess, []byte{1, 2, 3})

	select {
	case err := <-done:
		require.ErrorIs(t, err, types.ErrMessageSize)
	case <-time.After(time.Second):
		t.Fatal("size mismatch not surfaced")
	}
}

func TestResponseErrorStatusIgnoresPayload(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	done := make(chan error, 1)
	go func() {
		_, err := env.conn.RequestSyncTimeout(context.Background(), 0x01,
			nil, 4, 0)
		done <- err
	}()

	// 状态异常时载荷被丢弃，长度校验也不适用
	respondLast(t, env, types.StatusRetry, nil)

	select {
	case err := <-done:
		require.ErrorIs(t, err, types.ErrRetry)
	case <-time.After(time.Second):
		t.Fatal("error status not surfaced")
	}
}

func TestDuplicateResponseIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	var completions atomic.Int32
	op, err := env.conn.NewOperation(0x01, 0, 1)
	require.NoError(t, err)
	defer op.Put()
	require.NoError(t, op.Send(func(*Operation) { completions.Add(1) }))

	_, msg := env.driver.lastSent()
	frame := buildResponse(msg.Bytes(), types.StatusSuccess, []byte{0x7F})

	// 重复投递：第二帧的闩锁尝试失败，不再调度完成
	env.hd.DataReceived(env.conn.LocalCPort(), frame)
	env.hd.DataReceived(env.conn.LocalCPort(), frame)

	require.Eventually(t, func() bool { return completions.Load() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), completions.Load())
	require.NoError(t, op.Result())
	require.Equal(t, []byte{0x7F}, op.ResponsePayload())
}

func TestMalformedFramesDropped(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	// 短帧
	env.hd.DataReceived(env.conn.LocalCPort(), []byte{1, 2, 3})

	// 声明长度超过实际接收长度
	frame := buildRequest(1, 0x01, []byte{1, 2, 3, 4})
	short := frame[:len(frame)-2]
	env.hd.DataReceived(env.conn.LocalCPort(), short)

	// 无主响应（没有匹配的在途操作）
	env.hd.DataReceived(env.conn.LocalCPort(),
		buildResponse(buildRequest(42, 0x01, nil), types.StatusSuccess, nil))

	// 丢弃是阅后即焚的：没有任何回应发出
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, env.driver.sentCount())
}

func TestDisabledConnectionDropsBytes(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.conn.Disable()

	env.hd.DataReceived(env.conn.LocalCPort(), buildRequest(1, 0x01, nil))
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, env.driver.sentCount())
}

func TestIncomingRequestHandled(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	require.NoError(t, env.conn.RegisterHandler(0x02, func(op interfaces.Operation) error {
		payload, err := op.AllocResponse(2)
		if err != nil {
			return err
		}
		// 回显请求载荷
		copy(payload, op.RequestPayload())
		return nil
	}))

	env.hd.DataReceived(env.conn.LocalCPort(), buildRequest(0x0042, 0x02, []byte{0xDE, 0xAD}))

	require.Eventually(t, func() bool { return env.driver.sentCount() == 1 },
		time.Second, time.Millisecond)

	_, msg := env.driver.lastSent()
	hdr, err := message.DecodeHeader(msg.Bytes())
	require.NoError(t, err)
	require.Equal(t, types.OperationID(0x0042), hdr.OperationID)
	require.Equal(t, types.OperationType(0x82), hdr.Type)
	require.Equal(t, types.StatusSuccess, hdr.Result)
	require.Equal(t, []byte{0xDE, 0xAD}, msg.Bytes()[message.HeaderSize:])
}

func TestIncomingUnknownTypeGetsProtocolBad(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	env.hd.DataReceived(env.conn.LocalCPort(), buildRequest(9, 0x7E, nil))

	require.Eventually(t, func() bool { return env.driver.sentCount() == 1 },
		time.Second, time.Millisecond)

	_, msg := env.driver.lastSent()
	hdr, err := message.DecodeHeader(msg.Bytes())
	require.NoError(t, err)
	require.Equal(t, types.StatusProtocolBad, hdr.Result)
	// 未注册操作码补的是空响应
	require.Equal(t, message.HeaderSize, len(msg.Bytes()))
}

func TestIncomingUnidirectionalNeverResponds(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.driver.autoComplete = true

	handled := make(chan bool, 1)
	require.NoError(t, env.conn.RegisterHandler(0x03, func(op interfaces.Operation) error {
		handled <- op.IsUnidirectional()
		// 返回值无关紧要：单向请求永不回送响应
		return types.ErrInvalidArgument
	}))

	// ID 0 标记单向请求
	env.hd.DataReceived(env.conn.LocalCPort(), buildRequest(types.OperationIDNone, 0x03, []byte{1}))

	select {
	case uni := <-handled:
		require.True(t, uni)
	case <-time.After(time.Second):
		t.Fatal("unidirectional request not dispatched")
	}
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, env.driver.sentCount())
}
