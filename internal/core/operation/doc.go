// Package operation 实现 Greybus 操作层的核心状态机
//
// 一次操作（Operation）是一对请求/响应消息的逻辑交换，
// 在连接（Connection，一对 CPort）上与其他操作并发复用。
// 本包负责：
//   - 请求与响应的异步匹配（按操作 ID）
//   - 结果闩锁：首写胜出，保证恰好一次完成
//   - 活跃操作登记与同步取消会合
//   - 入站帧的校验、分派与响应回送
//
// 所有跨操作共享的状态（结果锁、取消条件、调度器、指标）
// 都收拢在 Core 上，随核心显式创建与关闭，不使用进程级全局量。
package operation
