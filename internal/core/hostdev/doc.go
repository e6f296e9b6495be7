// Package hostdev 实现主机设备注册与 CPort 管理
//
// 主机设备（Host Device）是核心与物理传输之间的汇接点：
// 持有传输驱动、协商的最大帧尺寸与 CPort 编号分配器，
// 并把驱动的发送完成/入站数据回调路由给操作层与各连接。
package hostdev
