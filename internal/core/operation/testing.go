package operation

import (
	"sync"

	"github.com/dep2p/go-greybus/internal/core/message"
	"github.com/dep2p/go-greybus/pkg/interfaces"
	"github.com/dep2p/go-greybus/pkg/types"
)

// 测试辅助设施：可手工控制发送完成与入站投递的传输驱动。

// sentRecord 一次被接受的发送
type sentRecord struct {
	cport types.CPortID
	msg   interfaces.Message
}

// manualDriver 手动挡传输驱动
//
// 发送只入队记录；测试代码自行决定何时上报发送完成、
// 回灌响应帧或制造发送失败。
type manualDriver struct {
	mu        sync.Mutex
	sent      []sentRecord
	cancelled []interfaces.Message

	// sendErr 非 nil 时 MessageSend 同步失败
	sendErr error

	// autoComplete 为 true 时发送被接受后立即上报成功完成
	autoComplete bool

	device interfaces.HostDevice
}

func newManualDriver() *manualDriver {
	return &manualDriver{}
}

func (d *manualDriver) bind(device interfaces.HostDevice) {
	d.device = device
}

func (d *manualDriver) MessageSend(cport types.CPortID, msg interfaces.Message) error {
	d.mu.Lock()
	if d.sendErr != nil {
		err := d.sendErr
		d.mu.Unlock()
		return err
	}
	d.sent = append(d.sent, sentRecord{cport: cport, msg: msg})
	auto := d.autoComplete
	d.mu.Unlock()

	if auto {
		d.device.MessageSent(msg, nil)
	}
	return nil
}

func (d *manualDriver) MessageCancel(msg interfaces.Message) {
	d.mu.Lock()
	d.cancelled = append(d.cancelled, msg)
	d.mu.Unlock()
}

// sentCount 返回被接受的发送数
func (d *manualDriver) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// lastSent 返回最近一次被接受的发送
func (d *manualDriver) lastSent() (types.CPortID, interfaces.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return 0, nil
	}
	rec := d.sent[len(d.sent)-1]
	return rec.cport, rec.msg
}

// completeLast 上报最近一次发送的完成结果
func (d *manualDriver) completeLast(result error) {
	_, msg := d.lastSent()
	if msg != nil {
		d.device.MessageSent(msg, result)
	}
}

// buildResponse 基于已发出的请求帧构造一条响应帧
//
// 操作 ID 原样继承；type 置响应位；载荷与状态由测试指定。
func buildResponse(request []byte, status types.Status, payload []byte) []byte {
	hdr, _ := message.DecodeHeader(request)

	frame := make([]byte, message.HeaderSize+len(payload))
	respHdr := message.Header{
		Size:        uint16(len(frame)),
		OperationID: hdr.OperationID,
		Type:        hdr.Type.Response(),
		Result:      status,
	}
	respHdr.EncodeTo(frame)
	copy(frame[message.HeaderSize:], payload)
	return frame
}

// buildRequest 构造一条入站请求帧
func buildRequest(id types.OperationID, typ types.OperationType, payload []byte) []byte {
	frame := make([]byte, message.HeaderSize+len(payload))
	hdr := message.Header{
		Size:        uint16(len(frame)),
		OperationID: id,
		Type:        typ,
	}
	hdr.EncodeTo(frame)
	copy(frame[message.HeaderSize:], payload)
	return frame
}
