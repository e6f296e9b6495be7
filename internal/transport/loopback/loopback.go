// Package loopback 实现进程内回环传输
//
// 一对互联的主机设备驱动：一端发出的帧直接投递到另一端对应的
// CPort。用于测试与示例，也是最小的参考传输实现。
package loopback

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

var logger = log.Logger("transport/loopback")

// DefaultBufferSize 回环传输的默认最大帧尺寸
const DefaultBufferSize = 0x800

// DefaultNumCPorts 回环传输的默认 CPort 数量
const DefaultNumCPorts = 256

// Driver 回环传输驱动
//
// 发送即投递：帧同步送达对端后立刻上报发送完成。
// 投递前拷贝缓冲区，发送方与接收方互不共享内存。
type Driver struct {
	mu     sync.Mutex
	peer   *Driver
	device interfaces.HostDevice
	closed bool
}

// 确保实现 interfaces.HostDriver 接口
var _ interfaces.HostDriver = (*Driver)(nil)

// NewPair 创建一对互联的回环驱动
func NewPair() (*Driver, *Driver) {
	a := &Driver{}
	b := &Driver{}
	a.peer = b
	b.peer = a
	return a, b
}

// Bind 绑定驱动服务的主机设备（注册后调用一次）
func (d *Driver) Bind(device interfaces.HostDevice) {
	d.mu.Lock()
	d.device = device
	d.mu.Unlock()
}

// Close 关闭驱动，之后的发送报设备已移除
func (d *Driver) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// MessageSend 把帧投递到对端的指定 CPort
//
// 对端设备尚未绑定或链路已关闭时同步失败，不产生完成回调。
func (d *Driver) MessageSend(cport types.CPortID, msg interfaces.Message) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("%w: loopback link closed", types.ErrDeviceGone)
	}
	device := d.device
	d.mu.Unlock()

	d.peer.mu.Lock()
	peerDevice := d.peer.device
	peerClosed := d.peer.closed
	d.peer.mu.Unlock()

	if peerClosed || peerDevice == nil {
		return fmt.Errorf("%w: loopback peer not attached", types.ErrDeviceGone)
	}
	if device == nil {
		return fmt.Errorf("%w: loopback driver not bound", types.ErrDeviceGone)
	}

	frame := make([]byte, len(msg.Bytes()))
	copy(frame, msg.Bytes())

	peerDevice.DataReceived(cport, frame)
	device.MessageSent(msg, nil)
	return nil
}

// MessageCancel 中止在途消息
//
// 回环发送是同步的，消息从不滞留在途，这里没有可中止的对象。
func (d *Driver) MessageCancel(msg interfaces.Message) {
	logger.Debug("回环传输忽略消息中止请求")
}

// NewDevicePair 组装一对互联的主机设备
//
// bufferSizeMax/numCPorts 非正时取默认值。
func NewDevicePair(bufferSizeMax, numCPorts int) (*hostdev.Device, *hostdev.Device, error) {
	if bufferSizeMax <= 0 {
		bufferSizeMax = DefaultBufferSize
	}
	if numCPorts <= 0 {
		numCPorts = DefaultNumCPorts
	}
	if bufferSizeMax < message.SizeMin {
		bufferSizeMax = message.SizeMin
	}

	da, db := NewPair()

	hda, err := hostdev.New(da, bufferSizeMax, numCPorts)
	if err != nil {
		return nil, nil, err
	}
	hdb, err := hostdev.New(db, bufferSizeMax, numCPorts)
	if err != nil {
		return nil, nil, err
	}

	da.Bind(hda)
	db.Bind(hdb)
	return hda, hdb, nil
}
