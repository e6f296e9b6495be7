package hostdev

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

var logger = log.Logger("core/hostdev")

// RecvFunc 单个 CPort 的入站帧处理函数
//
// 在传输回调上下文中执行，不得阻塞。
type RecvFunc func(data []byte)

// SentFunc 发送完成路由函数
//
// 由操作层注册，result 为 nil 表示发送成功。
type SentFunc func(msg interfaces.Message, result error)

// Device 主机设备
//
// 封装一个传输驱动实例，实现 interfaces.HostDevice 回调面。
type Device struct {
	driver        interfaces.HostDriver
	bufferSizeMax int
	numCPorts     int

	cports *cportIDMap

	mu       sync.RWMutex
	handlers map[types.CPortID]RecvFunc
	sent     SentFunc
}

// 确保实现 interfaces.HostDevice 接口
var _ interfaces.HostDevice = (*Device)(nil)

// New 注册一个主机设备
//
// 校验驱动实现了全部回调，并把缓冲区尺寸约束在协议范围内：
// 小于协议最小值直接拒绝；超过协议上限时收紧并告警。
func New(driver interfaces.HostDriver, bufferSizeMax int, numCPorts int) (*Device, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: host driver is required", types.ErrInvalidArgument)
	}

	if bufferSizeMax < message.SizeMin {
		return nil, fmt.Errorf("%w: host device buffers too small (%d < %d)",
			types.ErrInvalidArgument, bufferSizeMax, message.SizeMin)
	}

	if numCPorts <= 0 || numCPorts > int(types.CPortIDMax) {
		return nil, fmt.Errorf("%w: invalid number of cports: %d",
			types.ErrInvalidArgument, numCPorts)
	}

	// 绝不允许分配超出协议支持的消息
	if bufferSizeMax > message.SizeMax {
		logger.Warn("限制缓冲区尺寸", "requested", bufferSizeMax, "max", message.SizeMax)
		bufferSizeMax = message.SizeMax
	}

	return &Device{
		driver:        driver,
		bufferSizeMax: bufferSizeMax,
		numCPorts:     numCPorts,
		cports:        newCPortIDMap(numCPorts),
		handlers:      make(map[types.CPortID]RecvFunc),
	}, nil
}

// BufferSizeMax 返回协商后的最大帧尺寸
func (d *Device) BufferSizeMax() int {
	return d.bufferSizeMax
}

// NumCPorts 返回 CPort 数量上限
func (d *Device) NumCPorts() int {
	return d.numCPorts
}

// ============================================================================
//                              发送路径
// ============================================================================

// MessageSend 把一条消息提交给传输驱动
func (d *Device) MessageSend(cport types.CPortID, msg interfaces.Message) error {
	return d.driver.MessageSend(cport, msg)
}

// MessageCancel 中止一条在途消息（阻塞，见 HostDriver 契约）
func (d *Device) MessageCancel(msg interfaces.Message) {
	d.driver.MessageCancel(msg)
}

// SetSentHandler 注册发送完成路由函数（由操作层调用一次）
func (d *Device) SetSentHandler(fn SentFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = fn
}

// MessageSent 实现 interfaces.HostDevice：驱动上报发送完成
func (d *Device) MessageSent(msg interfaces.Message, result error) {
	d.mu.RLock()
	sent := d.sent
	d.mu.RUnlock()

	if sent == nil {
		logger.Warn("发送完成无人处理", "error", result)
		return
	}
	sent(msg, result)
}

// ============================================================================
//                              接收路径
// ============================================================================

// RegisterRecv 注册某个 CPort 的入站帧处理函数
func (d *Device) RegisterRecv(cport types.CPortID, fn RecvFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[cport]; exists {
		return fmt.Errorf("%w: cport %d already bound", types.ErrInvalidArgument, cport)
	}
	d.handlers[cport] = fn
	return nil
}

// UnregisterRecv 注销某个 CPort 的入站帧处理函数
func (d *Device) UnregisterRecv(cport types.CPortID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, cport)
}

// DataReceived 实现 interfaces.HostDevice：驱动上报入站帧
//
// 找不到对应 CPort 时丢弃并记录日志（对端最终表现为超时）。
func (d *Device) DataReceived(cport types.CPortID, data []byte) {
	d.mu.RLock()
	fn, ok := d.handlers[cport]
	d.mu.RUnlock()

	if !ok {
		logger.Warn("丢弃未绑定 CPort 的数据", "cport", cport, "bytes", len(data))
		return
	}
	fn(data)
}

// ============================================================================
//                              CPort 编号分配
// ============================================================================

// CPortIDAlloc 分配一个空闲 CPort 编号
func (d *Device) CPortIDAlloc() (types.CPortID, error) {
	return d.cports.alloc()
}

// CPortIDFree 归还一个 CPort 编号
func (d *Device) CPortIDFree(id types.CPortID) {
	d.cports.free(id)
}
