package ofperr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofext/ofpmsg"
)

func TestEncodeReplyExperimenter(t *testing.T) {
	buf := ofpmsg.NewExperimenter(ofpmsg.Version13, 0x11223344, ofpmsg.DpkmAddPeer, 328)
	req, err := ofpmsg.Classify(buf)
	require.NoError(t, err)

	rep := EncodeReply(req, MissingKey)

	// header(8) + type/code(4) + experimenter(4) + 64 echoed bytes
	require.Len(t, rep, 8+4+4+ReplyDataLen)
	assert.Equal(t, []byte{
		0x04, 0x01, 0x00, 0x50, 0x11, 0x22, 0x33, 0x44, // header
		0xff, 0xff, 0x00, 0x05, // type, exp code
		0xa2, 0x0a, 0x03, 0x23, // experimenter
	}, rep[:16])
	assert.Equal(t, buf[:ReplyDataLen], rep[16:])

	m, err := ofpmsg.Classify(rep)
	require.NoError(t, err)
	e, data, err := DecodeReply(m)
	require.NoError(t, err)
	assert.Same(t, MissingKey, e)
	assert.Equal(t, buf[:ReplyDataLen], data)
}

func TestEncodeReplyStandard(t *testing.T) {
	// echo request with a short body, echoed completely
	buf := ofpmsg.EncodeEchoRequest(ofpmsg.Version10, []byte{1, 2, 3})
	ofpmsg.SetXid(buf, 7)
	req, err := ofpmsg.Classify(buf)
	require.NoError(t, err)

	rep := EncodeReply(req, BadLength)
	assert.Equal(t, []byte{
		0x01, 0x01, 0x00, 0x17, 0x00, 0x00, 0x00, 0x07, // header
		0x00, 0x01, 0x00, 0x06, // BAD_REQUEST / BAD_LEN
	}, rep[:12])
	assert.True(t, bytes.Equal(buf, rep[12:]))

	m, err := ofpmsg.Classify(rep)
	require.NoError(t, err)
	e, data, err := DecodeReply(m)
	require.NoError(t, err)
	assert.Same(t, BadLength, e)
	assert.Equal(t, buf, data)
}

func TestDecodeReplyErrors(t *testing.T) {
	echo, err := ofpmsg.Classify(ofpmsg.EncodeEchoRequest(ofpmsg.Version10, nil))
	require.NoError(t, err)
	_, _, err = DecodeReply(echo)
	assert.ErrorIs(t, err, ErrNotAnError)

	tests := []struct {
		name string
		buf  []byte
		err  error
	}{
		{
			name: "unknown code",
			buf:  []byte{0x04, 0x01, 0x00, 0x0c, 0, 0, 0, 1, 0x00, 0x01, 0x00, 0x63},
			err:  ErrUnknownCode,
		},
		{
			name: "other experimenter",
			buf:  []byte{0x04, 0x01, 0x00, 0x10, 0, 0, 0, 1, 0xff, 0xff, 0x00, 0x05, 0x00, 0x00, 0x23, 0x20},
			err:  ErrUnknownCode,
		},
		{
			name: "truncated experimenter form",
			buf:  []byte{0x04, 0x01, 0x00, 0x0e, 0, 0, 0, 1, 0xff, 0xff, 0x00, 0x05, 0xa2, 0x0a},
			err:  ofpmsg.ErrNotEnoughData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ofpmsg.Classify(tt.buf)
			require.NoError(t, err)
			_, _, err = DecodeReply(m)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
