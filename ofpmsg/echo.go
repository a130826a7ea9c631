package ofpmsg

// EncodeEchoRequest creates an echo request carrying payload. The
// transaction id is left 0, the transport assigns it with [SetXid].
func EncodeEchoRequest(version uint8, payload []byte) []byte {
	buf := NewMessage(version, TypeEchoRequest, 0, len(payload))
	copy(buf[HeaderSize:], payload)
	return buf
}

// EncodeEchoReply creates the echo reply matching the echo request req. The
// payload is copied verbatim and the reply is addressed to the request's
// transaction id.
func EncodeEchoReply(req Message) ([]byte, error) {
	if req.Raw != RawEchoRequest {
		return nil, ErrWrongMessageType
	}
	buf := NewMessage(req.Header.Version, TypeEchoReply, req.Header.Xid, len(req.Payload))
	copy(buf[HeaderSize:], req.Payload)
	return buf, nil
}

// MustEncodeEchoReply is like [EncodeEchoReply] but panics if req is not an
// echo request.
func MustEncodeEchoReply(req Message) []byte {
	buf, err := EncodeEchoReply(req)
	if err != nil {
		panic("ofpmsg: " + err.Error())
	}
	return buf
}
