// Package greybus 实现 Greybus 操作层：在一条不可靠传输上，
// 经由多条逻辑连接（CPort 对）复用的请求/响应 RPC 协议。
//
// 核心能力：
//   - 异步请求与响应按操作 ID 匹配，支持同一连接上的并发在途操作
//   - 首写胜出的结果闩锁，传输完成与取消竞争时保证恰好一次完成
//   - 同步等待 + 超时 + 可取消的调用语义
//   - 位精确的线上帧格式（8 字节小端消息头）
//
// 基本用法：
//
//	core, err := greybus.New(greybus.WithDriver(driver))
//	if err != nil { ... }
//	if err := core.Start(context.Background()); err != nil { ... }
//	defer core.Stop(context.Background())
//
//	conn, err := core.CreateConnection(5)
//	_ = conn.Enable()
//	resp, err := conn.RequestSync(ctx, 0x01, []byte{0xAA}, 1)
//
// 物理传输以 HostDriver 接口接入（见 pkg/interfaces）；
// 内置进程内回环与 WebSocket 桥接两种参考传输。
package greybus
