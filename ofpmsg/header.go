package ofpmsg

import (
	"encoding/binary"
)

// This type represents the Header every message starts with.
type Header struct {
	Version uint8
	Type    MsgType
	Length  uint16
	Xid     uint32
}

// Unmarshals the Header from the provided buffer.
//
// Returns the number of bytes read from the buffer.
func (h *Header) Unmarshal(buf []byte) (int, error) {
	if len(buf) < h.CalcSize() {
		return 0, ErrNotEnoughData
	}

	idx := 0

	h.Version = buf[idx]
	idx += 1

	h.Type = MsgType(buf[idx])
	idx += 1

	h.Length = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	h.Xid = binary.BigEndian.Uint32(buf[idx:])
	idx += 4

	return idx, nil
}

// Marshals the Header to the provided buffer.
//
// This function expects that the provided buffer already is large enough.
func (h *Header) Marshal(buf []byte) error {
	if len(buf) < h.CalcSize() {
		return ErrBufSize
	}
	buf[0] = h.Version
	buf[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(buf[2:], h.Length)
	binary.BigEndian.PutUint32(buf[4:], h.Xid)
	return nil
}

// Returns the size of the Header.
func (h *Header) CalcSize() int {
	return binary.Size(h)
}
