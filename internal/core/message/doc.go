// Package message 实现 Greybus 消息的帧格式
//
// 一条消息是一段连续缓冲区：8 字节消息头 + 载荷。
// 消息头为小端序，布局与任何 Greybus 协议端点位级兼容：
//
//	[size:u16][operation_id:u16][type:u8][result:u8][pad:2]
//
// size 为消息总长（头 + 载荷）。type 最高位置位表示响应。
// pad 为保留字节，部分传输借用它携带路由元数据（如 CPort 编号），
// 这是传输层约定而非核心不变量，见 cport.go。
package message
