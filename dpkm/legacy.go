package dpkm

import (
	"encoding/binary"
	"net/netip"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"ofext/ofpmsg"
)

// The TLVs below predate the fixed size messages. Back then peer deletion
// was a key TLV with [KeyFlagDeletePeer] instead of its own subtype. They are
// kept to read and write old captures.

// KeyFlag tells what a [KeyTLV] carries.
type KeyFlag uint32

const (
	KeyFlagPrivate    KeyFlag = 0
	KeyFlagPublic     KeyFlag = 1
	KeyFlagDeletePeer KeyFlag = 2
)

func (f KeyFlag) String() string {
	switch f {
	case KeyFlagPrivate:
		return "PRIVATE_KEY"
	case KeyFlagPublic:
		return "PUBLIC_KEY"
	case KeyFlagDeletePeer:
		return "DELETE_PEER"
	default:
		return "UNKNOWN"
	}
}

// KeyTLV carries a raw 32 byte key and the IPv4 address it belongs to.
type KeyTLV struct {
	Type   uint16
	Length uint16
	// key as 8 big-endian words
	Key     [8]uint32
	IPv4Dst uint32
	Flag    KeyFlag
	// 4 bytes padding follow on the wire
}

const KeyTLVSize = 48

// Unmarshals the KeyTLV from the provided buffer.
//
// Returns the number of bytes read from the buffer.
func (k *KeyTLV) Unmarshal(buf []byte) (int, error) {
	idx := 0
	if len(buf) < k.CalcSize() {
		return idx, ofpmsg.ErrNotEnoughData
	}

	k.Type = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	k.Length = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	for i := range k.Key {
		k.Key[i] = binary.BigEndian.Uint32(buf[idx:])
		idx += 4
	}

	k.IPv4Dst = binary.BigEndian.Uint32(buf[idx:])
	idx += 4

	k.Flag = KeyFlag(binary.BigEndian.Uint32(buf[idx:]))
	idx += 4

	// padding
	idx += 4
	return idx, nil
}

// Marshals the KeyTLV to the provided buffer.
func (k *KeyTLV) Marshal(buf []byte) error {
	idx := 0
	if len(buf) < k.CalcSize() {
		return ofpmsg.ErrBufSize
	}

	binary.BigEndian.PutUint16(buf[idx:], k.Type)
	idx += 2

	binary.BigEndian.PutUint16(buf[idx:], k.Length)
	idx += 2

	for _, w := range k.Key {
		binary.BigEndian.PutUint32(buf[idx:], w)
		idx += 4
	}

	binary.BigEndian.PutUint32(buf[idx:], k.IPv4Dst)
	idx += 4

	binary.BigEndian.PutUint32(buf[idx:], uint32(k.Flag))
	idx += 4

	clear(buf[idx : idx+4])
	return nil
}

func (k *KeyTLV) CalcSize() int {
	return KeyTLVSize
}

func (k *KeyTLV) WireGuardKey() wgtypes.Key {
	var key wgtypes.Key
	for i, w := range k.Key {
		binary.BigEndian.PutUint32(key[i*4:], w)
	}
	return key
}

func (k *KeyTLV) SetWireGuardKey(key wgtypes.Key) {
	for i := range k.Key {
		k.Key[i] = binary.BigEndian.Uint32(key[i*4:])
	}
}

func (k *KeyTLV) Dst() netip.Addr {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], k.IPv4Dst)
	return netip.AddrFrom4(a)
}

// SetDst stores a. Only IPv4 addresses fit, others are stored as 0.0.0.0.
func (k *KeyTLV) SetDst(a netip.Addr) {
	if !a.Is4() {
		k.IPv4Dst = 0
		return
	}
	b := a.As4()
	k.IPv4Dst = binary.BigEndian.Uint32(b[:])
}

// StatusTLV reports the status together with a key TLV.
type StatusTLV struct {
	Type   uint16
	Length uint16
	Flags  StatusFlags
	Peers  KeyTLV
}

const StatusTLVSize = 8 + KeyTLVSize

// Unmarshals the StatusTLV from the provided buffer.
//
// Returns the number of bytes read from the buffer.
func (s *StatusTLV) Unmarshal(buf []byte) (int, error) {
	idx := 0
	if len(buf) < s.CalcSize() {
		return idx, ofpmsg.ErrNotEnoughData
	}

	s.Type = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	s.Length = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	s.Flags = StatusFlags(binary.BigEndian.Uint32(buf[idx:]))
	idx += 4

	n, err := s.Peers.Unmarshal(buf[idx:])
	idx += n
	return idx, err
}

// Marshals the StatusTLV to the provided buffer.
func (s *StatusTLV) Marshal(buf []byte) error {
	idx := 0
	if len(buf) < s.CalcSize() {
		return ofpmsg.ErrBufSize
	}

	binary.BigEndian.PutUint16(buf[idx:], s.Type)
	idx += 2

	binary.BigEndian.PutUint16(buf[idx:], s.Length)
	idx += 2

	binary.BigEndian.PutUint32(buf[idx:], uint32(s.Flags))
	idx += 4

	return s.Peers.Marshal(buf[idx:])
}

func (s *StatusTLV) CalcSize() int {
	return StatusTLVSize
}
