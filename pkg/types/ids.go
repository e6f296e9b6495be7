// Package types 定义 Greybus 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 greybus 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
package types

// ============================================================================
//                              CPortID - 逻辑端口标识
// ============================================================================

// CPortID 逻辑端口（CPort）标识符
//
// CPort 是在物理传输上复用的逻辑编号端点，类似端口号。
// 一条连接绑定本端与远端各一个 CPort。
type CPortID uint16

// CPortIDMax CPort 编号上限
const CPortIDMax CPortID = 0xFFFF

// ============================================================================
//                              OperationID - 操作标识
// ============================================================================

// OperationID 操作标识符
//
// 在单条连接上，同一时刻处于活跃状态的出站操作之间唯一。
// 0 为保留值：入站请求携带 0 表示单向操作（不期待响应）。
type OperationID uint16

// OperationIDNone 保留的无效/单向操作 ID
const OperationIDNone OperationID = 0

// ============================================================================
//                              OperationType - 操作类型
// ============================================================================

// OperationType 操作类型（协议操作码）
//
// 最高位（0x80）保留用于区分响应消息：
// 置位表示响应，清除后得到对应的请求类型。
type OperationType uint8

const (
	// OperationTypeInvalid 保留的无效操作类型，所有协议都不得使用
	OperationTypeInvalid OperationType = 0x00

	// MessageTypeResponse 响应标志位
	MessageTypeResponse OperationType = 0x80
)

// IsResponse 判断该类型是否为响应消息类型
func (t OperationType) IsResponse() bool {
	return t&MessageTypeResponse != 0
}

// Request 返回对应的请求类型（清除响应标志位）
func (t OperationType) Request() OperationType {
	return t &^ MessageTypeResponse
}

// Response 返回对应的响应类型（置位响应标志位）
func (t OperationType) Response() OperationType {
	return t | MessageTypeResponse
}
