// Package dispatcher 提供操作完成与入站请求的延迟执行上下文
//
// 接收路径只拷贝字节并入队任务；任何可能阻塞的工作（完成回调、
// 协议处理器、响应发送）都在这里的工作池中执行。
package dispatcher

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/lib/log"
)

var logger = log.Logger("core/dispatcher")

// DefaultWorkers 默认工作协程数
const DefaultWorkers = 4

// Dispatcher 工作池任务队列
//
// 队列无界：Submit 永不阻塞调用方（接收路径依赖这一点）。
type Dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	eg *errgroup.Group
}

// 确保实现 interfaces.Dispatcher 接口
var _ interfaces.Dispatcher = (*Dispatcher)(nil)

// New 创建并启动调度器
//
// workers 非正时使用 DefaultWorkers。
func New(workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	d := &Dispatcher{}
	d.cond = sync.NewCond(&d.mu)

	d.eg = new(errgroup.Group)
	for i := 0; i < workers; i++ {
		d.eg.Go(d.worker)
	}

	logger.Debug("调度器已启动", "workers", workers)
	return d
}

// Submit 入队一个任务
//
// 调用方不会被阻塞。调度器关闭后提交的任务被丢弃并记录日志。
func (d *Dispatcher) Submit(task func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.Warn("调度器已关闭，任务被丢弃")
		return
	}
	d.queue = append(d.queue, task)
	d.mu.Unlock()

	d.cond.Signal()
}

// Close 停止调度器
//
// 已入队的任务会执行完毕，之后所有工作协程退出。幂等。
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cond.Broadcast()
	err := d.eg.Wait()

	logger.Debug("调度器已停止")
	return err
}

// worker 工作协程主循环
func (d *Dispatcher) worker() error {
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.closed {
			d.mu.Unlock()
			return nil
		}
		task := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		task()
	}
}

// Pending 返回当前排队任务数
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// shutdownContext 供 fx 生命周期钩子使用的带超时关闭
func (d *Dispatcher) shutdownContext(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- d.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
