package loopback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/types"
)

func TestFramesCrossTheLink(t *testing.T) {
	hda, hdb, err := NewDevicePair(0, 0)
	require.NoError(t, err)

	var got []byte
	require.NoError(t, hdb.RegisterRecv(5, func(data []byte) { got = data }))

	var sentMsg interfaces.Message
	var sentErr error
	hda.SetSentHandler(func(msg interfaces.Message, result error) {
		sentMsg = msg
		sentErr = result
	})

	m, err := message.New(0x01, 2, hda.BufferSizeMax())
	require.NoError(t, err)
	copy(m.Payload(), []byte{0xCA, 0xFE})

	require.NoError(t, hda.MessageSend(5, m))

	// 帧原样送达对端对应的 CPort
	require.Equal(t, m.Bytes(), got)

	// 投递的是副本，不共享底层缓冲区
	got[0] = 0xFF
	assert.NotEqual(t, got[0], m.Bytes()[0])

	// 发送完成恰好上报一次
	assert.Equal(t, interfaces.Message(m), sentMsg)
	assert.NoError(t, sentErr)
}

func TestSendAfterCloseFails(t *testing.T) {
	da, db := NewPair()
	hda, err := hostdev.New(da, DefaultBufferSize, 4)
	require.NoError(t, err)
	hdb, err := hostdev.New(db, DefaultBufferSize, 4)
	require.NoError(t, err)
	da.Bind(hda)
	db.Bind(hdb)

	da.Close()

	m, err := message.New(0x01, 0, DefaultBufferSize)
	require.NoError(t, err)
	require.ErrorIs(t, da.MessageSend(1, m), types.ErrDeviceGone)
}

func TestSendWithoutPeerFails(t *testing.T) {
	da, _ := NewPair()

	m, err := message.New(0x01, 0, DefaultBufferSize)
	require.NoError(t, err)

	// 对端未绑定设备
	require.ErrorIs(t, da.MessageSend(1, m), types.ErrDeviceGone)
}

func TestDevicePairValidation(t *testing.T) {
	// 非正参数取默认值
	hda, hdb, err := NewDevicePair(-1, -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferSize, hda.BufferSizeMax())
	assert.Equal(t, DefaultNumCPorts, hdb.NumCPorts())
}
