package hostdev

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/types"
)

// nopDriver 什么都不做的驱动
type nopDriver struct {
	mu   sync.Mutex
	sent []types.CPortID
}

func (d *nopDriver) MessageSend(cport types.CPortID, msg interfaces.Message) error {
	d.mu.Lock()
	d.sent = append(d.sent, cport)
	d.mu.Unlock()
	return nil
}

func (d *nopDriver) MessageCancel(msg interfaces.Message) {}

func TestNewValidatesDriver(t *testing.T) {
	_, err := New(nil, message.SizeMin, 16)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestNewValidatesBufferSize(t *testing.T) {
	// 低于协议最小值直接拒绝
	_, err := New(&nopDriver{}, message.SizeMin-1, 16)
	require.ErrorIs(t, err, types.ErrInvalidArgument)

	// 超过协议上限时收紧
	d, err := New(&nopDriver{}, message.SizeMax+1000, 16)
	require.NoError(t, err)
	assert.Equal(t, message.SizeMax, d.BufferSizeMax())
}

func TestNewValidatesNumCPorts(t *testing.T) {
	_, err := New(&nopDriver{}, message.SizeMin, 0)
	require.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = New(&nopDriver{}, message.SizeMin, -5)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestCPortIDAllocation(t *testing.T) {
	d, err := New(&nopDriver{}, message.SizeMin, 4)
	require.NoError(t, err)

	// 编号两两不同
	seen := make(map[types.CPortID]bool)
	for i := 0; i < 4; i++ {
		id, err := d.CPortIDAlloc()
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}

	// 耗尽后报错
	_, err = d.CPortIDAlloc()
	require.ErrorIs(t, err, types.ErrNoMemory)

	// 归还后可复用
	for id := range seen {
		d.CPortIDFree(id)
		break
	}
	_, err = d.CPortIDAlloc()
	require.NoError(t, err)
}

func TestRecvRouting(t *testing.T) {
	d, err := New(&nopDriver{}, message.SizeMin, 16)
	require.NoError(t, err)

	var got []byte
	require.NoError(t, d.RegisterRecv(3, func(data []byte) { got = data }))

	// 重复绑定被拒绝
	require.ErrorIs(t, d.RegisterRecv(3, func([]byte) {}), types.ErrInvalidArgument)

	d.DataReceived(3, []byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, got)

	// 未绑定的 CPort 丢弃
	d.DataReceived(9, []byte{4, 5})

	// 注销后丢弃
	d.UnregisterRecv(3)
	got = nil
	d.DataReceived(3, []byte{6})
	assert.Nil(t, got)
}

func TestSentRouting(t *testing.T) {
	d, err := New(&nopDriver{}, message.SizeMin, 16)
	require.NoError(t, err)

	var gotErr error
	d.SetSentHandler(func(msg interfaces.Message, result error) { gotErr = result })

	m, err := message.New(0x01, 0, d.BufferSizeMax())
	require.NoError(t, err)

	d.MessageSent(m, types.ErrDeviceGone)
	assert.ErrorIs(t, gotErr, types.ErrDeviceGone)
}
