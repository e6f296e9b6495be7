package greybus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-greybus/internal/core/hostdev"
	"github.com/dep2p/go-greybus/internal/core/operation"
	"github.com/dep2p/go-greybus/internal/transport/loopback"
	"github.com/dep2p/go-greybus/pkg/lib/log"
	"github.com/dep2p/go-greybus/pkg/types"
)

var logger = log.Logger("greybus")

// State 核心状态
type State int

const (
	// StateIdle 已创建，未启动
	StateIdle State = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Core Greybus 操作层门面
//
// 持有操作层核心上下文与主机设备，随 Start/Stop 显式起停。
// 原本散落为进程级全局量的状态（结果闩锁锁、取消会合条件、
// 完成调度器）全部收拢在这里，一个进程可以并存多个 Core。
type Core struct {
	mu    sync.Mutex
	state State

	app  *fx.App
	opts *options

	op *operation.Core
	hd *hostdev.Device
}

// New 创建核心
//
// 必须提供传输驱动（WithDriver）。创建后处于空闲状态，
// Start 之后才能建立连接。
func New(opts ...Option) (*Core, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}

	core := &Core{opts: o}
	app, err := buildFxApp(o, core)
	if err != nil {
		return nil, err
	}
	core.app = app
	return core, nil
}

// Start 启动核心
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	if err := c.app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	c.state = StateRunning
	logger.Info("greybus 核心已启动", "buffer_size_max", c.hd.BufferSizeMax(),
		"num_cports", c.hd.NumCPorts())
	return nil
}

// Stop 停止核心
//
// 断开所有连接、停止调度器。幂等。
func (c *Core) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		return ErrNotStarted
	case StateStopped:
		return nil
	}

	err := c.app.Stop(ctx)
	c.state = StateStopped

	logger.Info("greybus 核心已停止")
	return err
}

// State 返回核心当前状态
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BufferSizeMax 返回传输协商后的最大帧尺寸
func (c *Core) BufferSizeMax() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hd == nil {
		return 0
	}
	return c.hd.BufferSizeMax()
}

// CreateConnection 建立一条到对端 CPort 的连接
//
// 本端 CPort 自动分配。新连接处于未启用状态，Enable 后开始收发。
func (c *Core) CreateConnection(remote types.CPortID) (*Connection, error) {
	c.mu.Lock()
	state := c.state
	op := c.op
	c.mu.Unlock()

	if state != StateRunning {
		return nil, ErrNotStarted
	}

	inner, err := op.CreateConnection(remote)
	if err != nil {
		return nil, err
	}
	return &Connection{inner: inner}, nil
}

// NewLoopbackPair 创建一对经进程内回环互联的核心
//
// 两端共享同样的选项（传输驱动除外）。用于测试与示例。
func NewLoopbackPair(opts ...Option) (*Core, *Core, error) {
	da, db := loopback.NewPair()

	a, err := New(append([]Option{WithDriver(da)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	b, err := New(append([]Option{WithDriver(db)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
