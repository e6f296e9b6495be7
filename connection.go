package greybus

import (
	"context"
	"time"

	"github.com/dep2p/go-greybus/internal/core/operation"
	"github.com/dep2p/go-greybus/pkg/types"
)

// Connection 一对 CPort 之间的逻辑连接（门面视图）
//
// 并发安全；同一连接上可同时存在多个在途操作。
type Connection struct {
	inner *operation.Connection
}

// LocalCPort 返回本端 CPort 编号
func (c *Connection) LocalCPort() types.CPortID {
	return c.inner.LocalCPort()
}

// RemoteCPort 返回对端 CPort 编号
func (c *Connection) RemoteCPort() types.CPortID {
	return c.inner.RemoteCPort()
}

// Enable 启用连接，开始收发
func (c *Connection) Enable() error {
	return c.inner.Enable()
}

// Disable 停用连接
//
// 同步取消所有在途操作后返回；之后的发送报连接未启用。
func (c *Connection) Disable() {
	c.inner.Disable()
}

// Close 停用连接并释放其 CPort
func (c *Connection) Close() error {
	return c.inner.Close()
}

// RegisterHandler 注册某操作码的入站请求处理器
func (c *Connection) RegisterHandler(typ types.OperationType, h RequestHandler) error {
	return c.inner.RegisterHandler(typ, h)
}

// UnregisterHandler 注销某操作码的入站请求处理器
func (c *Connection) UnregisterHandler(typ types.OperationType) {
	c.inner.UnregisterHandler(typ)
}

// RequestSync 发起一次同步请求/响应交换（核心默认超时）
//
// 返回拷贝出的响应载荷。
func (c *Connection) RequestSync(ctx context.Context, typ types.OperationType,
	request []byte, responseSize int) ([]byte, error) {
	return c.inner.RequestSync(ctx, typ, request, responseSize)
}

// RequestSyncTimeout 发起一次同步请求/响应交换
//
// timeout 为 0 表示无限等待。
func (c *Connection) RequestSyncTimeout(ctx context.Context, typ types.OperationType,
	request []byte, responseSize int, timeout time.Duration) ([]byte, error) {
	return c.inner.RequestSyncTimeout(ctx, typ, request, responseSize, timeout)
}

// SendUnidirectional 发送一条单向请求（对端不回送响应）
func (c *Connection) SendUnidirectional(ctx context.Context, typ types.OperationType,
	request []byte) error {
	return c.inner.SendUnidirectional(ctx, typ, request)
}
