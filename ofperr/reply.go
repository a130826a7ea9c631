package ofperr

import (
	"encoding/binary"
	"fmt"

	"ofext/ofpmsg"
)

// number of bytes of the offending message echoed in an error reply
const ReplyDataLen = 64

// EncodeReply builds the error message reporting e for the request req. The
// reply uses the request's version and transaction id and carries up to
// [ReplyDataLen] bytes of the request.
func EncodeReply(req ofpmsg.Message, e *Error) []byte {
	data := req.Data[:min(len(req.Data), ReplyDataLen)]

	bodyLen := 4
	if e.IsExperimenter() {
		bodyLen += 4
	}

	buf := ofpmsg.NewMessage(req.Header.Version, ofpmsg.TypeError, req.Header.Xid, bodyLen+len(data))
	idx := ofpmsg.HeaderSize

	binary.BigEndian.PutUint16(buf[idx:], e.Type)
	idx += 2

	binary.BigEndian.PutUint16(buf[idx:], e.Code)
	idx += 2

	if e.IsExperimenter() {
		binary.BigEndian.PutUint32(buf[idx:], ofpmsg.DpkmVendor)
		idx += 4
	}

	copy(buf[idx:], data)
	return buf
}

// DecodeReply maps a received error message back to the predefined error.
//
// Returns the error and the echoed bytes of the offending message.
func DecodeReply(m ofpmsg.Message) (*Error, []byte, error) {
	if m.Raw != ofpmsg.RawError {
		return nil, nil, ErrNotAnError
	}
	body := m.Payload
	if len(body) < 4 {
		return nil, nil, ofpmsg.ErrNotEnoughData
	}

	idx := 0
	typ := binary.BigEndian.Uint16(body[idx:])
	idx += 2

	code := binary.BigEndian.Uint16(body[idx:])
	idx += 2

	if typ == TypeExperimenter {
		if len(body) < idx+4 {
			return nil, nil, ofpmsg.ErrNotEnoughData
		}
		experimenter := binary.BigEndian.Uint32(body[idx:])
		idx += 4
		if experimenter != ofpmsg.DpkmVendor {
			return nil, nil, fmt.Errorf("%w: experimenter 0x%08x", ErrUnknownCode, experimenter)
		}
	}

	e, ok := Lookup(typ, code)
	if !ok {
		return nil, nil, fmt.Errorf("%w: type %d code %d", ErrUnknownCode, typ, code)
	}
	return e, body[idx:], nil
}
