package dpkm

import (
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// ValidateWireGuardKey parses k as base64 encoded WireGuard key.
//
// The decoders do not apply this check, the wire format does not constrain
// the key text.
func ValidateWireGuardKey(k KeyField) (wgtypes.Key, error) {
	key, err := wgtypes.ParseKey(k.String())
	if err != nil {
		return wgtypes.Key{}, fmt.Errorf("invalid WireGuard key: %w", err)
	}
	return key, nil
}

// KeyFieldFromWireGuard stores the base64 form of key.
func KeyFieldFromWireGuard(key wgtypes.Key) KeyField {
	var k KeyField
	k.Set(key.String())
	return k
}
