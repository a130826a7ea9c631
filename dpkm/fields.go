package dpkm

import (
	"bytes"
	"log/slog"
)

// capacities of the string fields
const (
	KeyLen = 256
	IPLen  = 32
)

// KeyField holds key material as NUL terminated text.
type KeyField [KeyLen]byte

// AddrField holds an IPv4 address as NUL terminated text.
type AddrField [IPLen]byte

// boundedCopy copies src up to its first NUL into dst. At most len(dst)-1
// bytes are copied so dst always ends up terminated, the rest of dst is
// zeroed. src is never read beyond its length.
func boundedCopy(dst, src []byte) {
	n := bytes.IndexByte(src, 0)
	if n < 0 {
		n = len(src)
	}
	n = min(n, len(dst)-1)
	copy(dst, src[:n])
	clear(dst[n:])
}

func cString(b []byte) string {
	if n := bytes.IndexByte(b, 0); n >= 0 {
		return string(b[:n])
	}
	return string(b)
}

// Set stores s, truncating it to KeyLen-1 bytes.
func (k *KeyField) Set(s string) {
	boundedCopy(k[:], []byte(s))
}

func (k KeyField) String() string {
	return cString(k[:])
}

func (k KeyField) Empty() bool {
	return k[0] == 0
}

// LogValue only logs the length, keys don't belong into logs.
func (k KeyField) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("len", len(k.String())))
}

// Set stores s, truncating it to IPLen-1 bytes.
func (a *AddrField) Set(s string) {
	boundedCopy(a[:], []byte(s))
}

func (a AddrField) String() string {
	return cString(a[:])
}

func (a AddrField) Empty() bool {
	return a[0] == 0
}

func (a AddrField) LogValue() slog.Value {
	return slog.StringValue(a.String())
}
