// Package ws 实现基于 WebSocket 的帧桥接传输
//
// 每条 Greybus 帧承载为一条 WebSocket 二进制消息。链路本身没有
// 独立的路由信道，发送前把目的 CPort 编号打包进消息头保留字节，
// 对端取出并清零后再向上递交。
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

var logger = log.Logger("transport/ws")

// Driver WebSocket 传输驱动
//
// 写路径由互斥锁串行化；读路径由 Run 的单一读循环承担。
type Driver struct {
	conn *websocket.Conn

	mu     sync.Mutex
	device interfaces.HostDevice

	writeMu sync.Mutex
	closed  atomic.Bool
}

// 确保实现 interfaces.HostDriver 接口
var _ interfaces.HostDriver = (*Driver)(nil)

// New 基于一条已建立的 WebSocket 连接创建驱动
func New(conn *websocket.Conn) *Driver {
	return &Driver{conn: conn}
}

// Dial 连接到对端并创建驱动
func Dial(ctx context.Context, url string) (*Driver, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return New(conn), nil
}

// Upgrader 服务端握手升级器
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Accept 升级一个 HTTP 请求并创建驱动（服务端）
func Accept(w http.ResponseWriter, r *http.Request) (*Driver, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	return New(conn), nil
}

// Bind 绑定驱动服务的主机设备（注册后调用一次）
func (d *Driver) Bind(device interfaces.HostDevice) {
	d.mu.Lock()
	d.device = device
	d.mu.Unlock()
}

// MessageSend 打包目的 CPort 并写出整帧
//
// 写出成功即视为发送完成并同步上报；该约定只支持单字节 CPort。
func (d *Driver) MessageSend(cport types.CPortID, msg interfaces.Message) error {
	if d.closed.Load() {
		return fmt.Errorf("%w: websocket link closed", types.ErrDeviceGone)
	}

	d.mu.Lock()
	device := d.device
	d.mu.Unlock()
	if device == nil {
		return fmt.Errorf("%w: websocket driver not bound", types.ErrDeviceGone)
	}

	// 打包发生在独立的发送副本上，不污染操作持有的缓冲区
	frame := make([]byte, len(msg.Bytes()))
	copy(frame, msg.Bytes())
	if err := message.PackCPort(frame, cport); err != nil {
		return err
	}

	d.writeMu.Lock()
	err := d.conn.WriteMessage(websocket.BinaryMessage, frame)
	d.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrDeviceGone, err)
	}

	device.MessageSent(msg, nil)
	return nil
}

// MessageCancel 中止在途消息
//
// 写出在 MessageSend 返回前已经完成，链路上没有可中止的消息。
func (d *Driver) MessageCancel(msg interfaces.Message) {
	logger.Debug("websocket 传输忽略消息中止请求")
}

// Run 读循环：收帧、解包 CPort、向上递交
//
// 阻塞到链路出错、对端关闭或 ctx 取消。短于消息头的帧丢弃并记录。
func (d *Driver) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		d.Close()
	}()

	for {
		kind, frame, err := d.conn.ReadMessage()
		if err != nil {
			if d.closed.Load() || websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if kind != websocket.BinaryMessage {
			logger.Warn("忽略非二进制消息", "kind", kind)
			continue
		}
		if len(frame) < message.HeaderSize {
			logger.Error("收到短帧", "bytes", len(frame))
			continue
		}

		cport, err := message.UnpackCPort(frame)
		if err != nil {
			logger.Error("解包 CPort 失败", "error", err)
			continue
		}
		message.ClearCPort(frame)

		d.mu.Lock()
		device := d.device
		d.mu.Unlock()
		if device == nil {
			logger.Warn("设备未绑定，丢弃入站帧", "cport", cport)
			continue
		}
		device.DataReceived(cport, frame)
	}
}

// Close 关闭链路
func (d *Driver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.writeMu.Lock()
	_ = d.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	d.writeMu.Unlock()

	return d.conn.Close()
}
