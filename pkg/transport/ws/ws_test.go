package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/types"
)

// startBridge 起一个服务端桥接，返回客户端驱动与服务端驱动
func startBridge(t *testing.T) (*Driver, *Driver) {
	t.Helper()

	serverCh := make(chan *Driver, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		drv, err := Accept(w, r)
		if err != nil {
			return
		}
		serverCh <- drv
		_ = drv.Run(context.Background())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var server *Driver
	select {
	case server = <-serverCh:
	case <-time.After(time.Second):
		t.Fatal("server side never accepted")
	}
	t.Cleanup(func() { _ = server.Close() })

	return client, server
}

func TestFramesCrossTheBridge(t *testing.T) {
	client, server := startBridge(t)

	hdc, err := hostdev.New(client, message.SizeMin, 16)
	require.NoError(t, err)
	client.Bind(hdc)

	hds, err := hostdev.New(server, message.SizeMin, 16)
	require.NoError(t, err)
	server.Bind(hds)

	go func() { _ = client.Run(context.Background()) }()

	type recv struct {
		cport types.CPortID
		data  []byte
	}
	got := make(chan recv, 1)
	require.NoError(t, hds.RegisterRecv(9, func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		got <- recv{9, buf}
	}))

	m, err := message.New(0x02, 3, hdc.BufferSizeMax())
	require.NoError(t, err)
	m.SetOperationID(0x0101)
	copy(m.Payload(), []byte{1, 2, 3})

	require.NoError(t, hdc.MessageSend(9, m))

	select {
	case r := <-got:
		assert.Equal(t, types.CPortID(9), r.cport)

		hdr, err := message.DecodeHeader(r.data)
		require.NoError(t, err)
		assert.Equal(t, types.OperationID(0x0101), hdr.OperationID)
		assert.Equal(t, types.OperationType(0x02), hdr.Type)

		// CPort 打包只存在于链路上，递交前已经清零
		assert.Equal(t, [2]byte{}, hdr.Pad)
		assert.Equal(t, []byte{1, 2, 3}, r.data[message.HeaderSize:])
	case <-time.After(2 * time.Second):
		t.Fatal("frame did not cross the bridge")
	}

	// 发送方自己的缓冲区不被打包污染
	assert.Equal(t, [2]byte{}, m.Header().Pad)
}

func TestSendRejectsWideCPort(t *testing.T) {
	client, _ := startBridge(t)

	hdc, err := hostdev.New(client, message.SizeMin, 16)
	require.NoError(t, err)
	client.Bind(hdc)

	m, err := message.New(0x02, 0, hdc.BufferSizeMax())
	require.NoError(t, err)

	// 该约定只支持单字节 CPort 编号
	require.ErrorIs(t, client.MessageSend(0x100, m), types.ErrInvalidArgument)
}

func TestSendAfterCloseFails(t *testing.T) {
	client, _ := startBridge(t)

	hdc, err := hostdev.New(client, message.SizeMin, 16)
	require.NoError(t, err)
	client.Bind(hdc)

	require.NoError(t, client.Close())

	m, err := message.New(0x02, 0, hdc.BufferSizeMax())
	require.NoError(t, err)
	require.ErrorIs(t, client.MessageSend(1, m), types.ErrDeviceGone)
}
