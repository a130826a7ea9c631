/*
 * ofext
 * Copyright (C) 2024 Fabio Gaiba and Lukas Heindl
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package hello

import (
	"fmt"
	"math/bits"
	"strings"
)

// VersionBitmap is a set of wire versions, bit n set means version n is
// supported. Bit 0 is never a valid version.
type VersionBitmap uint32

// FromVersion returns the set {1..v}. For v >= 32 this saturates to all
// representable versions.
func FromVersion(v uint8) VersionBitmap {
	var top uint32
	if v < 32 {
		top = 1 << v
	}
	return VersionBitmap((top - 1) << 1)
}

// Highest returns the highest version in b or 0 if b is empty.
func (b VersionBitmap) Highest() uint8 {
	if b == 0 {
		return 0
	}
	return uint8(bits.Len32(uint32(b)) - 1)
}

func (b VersionBitmap) Contains(v uint8) bool {
	return v < 32 && b&(1<<v) != 0
}

// IsCanonical reports whether b is exactly {1..b.Highest()}, which is what a
// bare hello header announces.
func (b VersionBitmap) IsCanonical() bool {
	return b != 0 && b&1 == 0 && isPow2(uint32(b>>1)+1)
}

// Versions lists the versions of b in ascending order.
func (b VersionBitmap) Versions() []uint8 {
	ret := make([]uint8, 0, bits.OnesCount32(uint32(b)))
	for v := uint8(0); v < 32; v++ {
		if b.Contains(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// String formats b as comma separated list of hex wire versions, like
// "0x01, 0x04".
func (b VersionBitmap) String() string {
	return b.join(func(v uint8) string {
		return fmt.Sprintf("0x%02x", v)
	})
}

// Names formats b using protocol names where known, like
// "OpenFlow10, OpenFlow13".
func (b VersionBitmap) Names() string {
	return b.join(VersionName)
}

func (b VersionBitmap) join(f func(uint8) string) string {
	var sb strings.Builder
	for i, v := range b.Versions() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f(v))
	}
	return sb.String()
}

// VersionName returns the protocol name of a wire version.
func VersionName(v uint8) string {
	switch v {
	case 0x01:
		return "OpenFlow10"
	case 0x02:
		return "OpenFlow11"
	case 0x03:
		return "OpenFlow12"
	case 0x04:
		return "OpenFlow13"
	case 0x05:
		return "OpenFlow14"
	case 0x06:
		return "OpenFlow15"
	default:
		return fmt.Sprintf("0x%02x", v)
	}
}

func isPow2(x uint32) bool {
	return x != 0 && x&(x-1) == 0
}
