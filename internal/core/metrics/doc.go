// Package metrics 实现操作层的指标收集
//
// 基于 Prometheus 统计操作的发送、完成、取消与时延，
// 供上层按需暴露。关闭指标时所有记录方法退化为空操作。
package metrics
