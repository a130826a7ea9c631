package ofpmsg

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// RoundUp rounds n up to the next multiple of align.
func RoundUp[T constraints.Unsigned](n, align T) T {
	return (n + align - 1) / align * align
}

// UpdateLength sets the length field of the header at the start of buf to
// len(buf). Call it once the message is fully composed.
func UpdateLength(buf []byte) {
	binary.BigEndian.PutUint16(buf[2:], uint16(len(buf)))
}

// SetXid sets the transaction id of the header at the start of buf.
func SetXid(buf []byte, xid uint32) {
	binary.BigEndian.PutUint32(buf[4:], xid)
}

// NewMessage allocates a message with a zeroed body of bodyLen bytes and a
// header whose length already covers the body.
func NewMessage(version uint8, t MsgType, xid uint32, bodyLen int) []byte {
	if HeaderSize+bodyLen > math.MaxUint16 {
		panic("ofpmsg: message exceeds maximum length")
	}
	buf := make([]byte, HeaderSize+bodyLen)
	h := Header{
		Version: version,
		Type:    t,
		Length:  uint16(len(buf)),
		Xid:     xid,
	}
	// buffer is large enough
	_ = h.Marshal(buf)
	return buf
}

// NewExperimenter allocates a DPKM experimenter message with a zeroed
// payload of payloadLen bytes.
func NewExperimenter(version uint8, xid uint32, expType uint32, payloadLen int) []byte {
	buf := NewMessage(version, TypeExperimenter, xid, ExperimenterHeaderSize-HeaderSize+payloadLen)
	binary.BigEndian.PutUint32(buf[HeaderSize:], DpkmVendor)
	binary.BigEndian.PutUint32(buf[HeaderSize+4:], expType)
	return buf
}
