package message

import (
	"fmt"

	"github.com/dep2p/go-greybus/pkg/types"
)

// CPort 路由元数据打包
//
// 部分传输没有独立的路由信道，发送前把目标 CPort 编号塞进消息头的
// 保留字节，对端取出后再清零。这是传输层约定：打包发生在提交驱动
// 之前，解包发生在向上递交之前，核心永远看不到非零的 pad。

// PackCPort 将 CPort 编号写入帧头保留字节
//
// 该约定只支持单字节 CPort 编号。
func PackCPort(frame []byte, cport types.CPortID) error {
	if cport > 0xFF {
		return fmt.Errorf("%w: cport id %d does not fit in header pad",
			types.ErrInvalidArgument, cport)
	}
	if len(frame) < HeaderSize {
		return fmt.Errorf("%w: short frame", types.ErrMessageSize)
	}

	frame[6] = byte(cport)
	return nil
}

// UnpackCPort 从帧头保留字节取出 CPort 编号
func UnpackCPort(frame []byte) (types.CPortID, error) {
	if len(frame) < HeaderSize {
		return 0, fmt.Errorf("%w: short frame", types.ErrMessageSize)
	}

	return types.CPortID(frame[6]), nil
}

// ClearCPort 清零帧头保留字节
//
// 向上递交前调用，保证核心观察到的 pad 恒为零。
func ClearCPort(frame []byte) {
	if len(frame) >= HeaderSize {
		frame[6] = 0
		frame[7] = 0
	}
}
