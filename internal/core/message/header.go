package message

import (
	"encoding/binary"
	"fmt"

	"github.com/dep2p/go-greybus/pkg/types"
)

// 帧尺寸常量
const (
	// HeaderSize 消息头长度（字节）
	HeaderSize = 8

	// SizeMin 传输缓冲区的协议最小值
	//
	// 主机设备上报的最大帧尺寸不得低于它。
	SizeMin = 0x800

	// SizeMax 帧尺寸上限（size 字段为 u16）
	SizeMax = 0xFFFF
)

// Header 消息头
//
// 所有多字节字段在线上为小端序。
type Header struct {
	// Size 消息总长（头 + 载荷）
	Size uint16

	// OperationID 操作 ID（0 为保留值）
	OperationID types.OperationID

	// Type 操作类型，最高位区分请求/响应
	Type types.OperationType

	// Result 响应状态码（请求中必须为 0）
	Result types.Status

	// Pad 保留字节（传输可借用，见 cport.go）
	Pad [2]byte
}

// EncodeTo 将消息头编码进 buf 的前 HeaderSize 字节
func (h *Header) EncodeTo(buf []byte) {
	_ = buf[HeaderSize-1]
	binary.LittleEndian.PutUint16(buf[0:2], h.Size)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.OperationID))
	buf[4] = byte(h.Type)
	buf[5] = byte(h.Result)
	buf[6] = h.Pad[0]
	buf[7] = h.Pad[1]
}

// DecodeHeader 从 data 的前 HeaderSize 字节解码消息头
//
// data 不足一个消息头时返回错误。
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: short frame (%d < %d)",
			types.ErrMessageSize, len(data), HeaderSize)
	}

	return Header{
		Size:        binary.LittleEndian.Uint16(data[0:2]),
		OperationID: types.OperationID(binary.LittleEndian.Uint16(data[2:4])),
		Type:        types.OperationType(data[4]),
		Result:      types.Status(data[5]),
		Pad:         [2]byte{data[6], data[7]},
	}, nil
}
