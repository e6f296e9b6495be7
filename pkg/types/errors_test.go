package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorMappingIsBidirectional(t *testing.T) {
	cases := []struct {
		status Status
		err    error
	}{
		{StatusSuccess, nil},
		{StatusInterrupted, ErrInterrupted},
		{StatusTimeout, ErrTimedOut},
		{StatusNoMemory, ErrNoMemory},
		{StatusProtocolBad, ErrProtocolNotSupported},
		{StatusOverflow, ErrMessageSize},
		{StatusInvalid, ErrInvalidArgument},
		{StatusRetry, ErrRetry},
		{StatusNonexistent, ErrDeviceGone},
		{StatusMalfunction, ErrMalfunction},
		{StatusUnknownError, ErrUnknown},
	}

	for _, c := range cases {
		assert.Equal(t, c.err, StatusToError(c.status), "status %s", c.status)
		assert.Equal(t, c.status, ErrorToStatus(c.err), "error %v", c.err)
	}
}

func TestUnknownStatusMapsToErrUnknown(t *testing.T) {
	assert.Equal(t, ErrUnknown, StatusToError(Status(0x55)))
}

func TestUnmappedErrorsMapToUnknownError(t *testing.T) {
	// 本地哨兵与任意错误都以兜底状态上线
	assert.Equal(t, StatusUnknownError, ErrorToStatus(ErrCancelled))
	assert.Equal(t, StatusUnknownError, ErrorToStatus(ErrNotConnected))
	assert.Equal(t, StatusUnknownError, ErrorToStatus(fmt.Errorf("some transport glitch")))
}

func TestWrappedErrorsStillMap(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrTimedOut)
	assert.Equal(t, StatusTimeout, ErrorToStatus(wrapped))
}

func TestOperationTypeResponseBit(t *testing.T) {
	typ := OperationType(0x05)
	assert.False(t, typ.IsResponse())
	assert.True(t, typ.Response().IsResponse())
	assert.Equal(t, typ, typ.Response().Request())
}
