package pattern

import (
	"encoding/base32"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	onionSuffix = ".onion"

	// onionV3Length is the length of a v3 address without the suffix:
	// base32 of a 32 byte ed25519 key, a 2 byte checksum and a version byte.
	onionV3Length  = 56
	onionV3Version = 0x03
)

var onionChecksumPrefix = []byte(".onion checksum")

// validOnion accepts v2 addresses on format alone and v3 addresses only
// when their embedded checksum and version byte are correct.
func validOnion(address string) bool {
	host := strings.TrimSuffix(strings.ToLower(address), onionSuffix)
	if len(host) != onionV3Length {
		return true
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(host))
	if err != nil || len(decoded) != 35 {
		return false
	}
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	want := onionV3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// onionV3Checksum returns the first two bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func onionV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(onionChecksumPrefix)+len(pubkey)+1)
	data = append(data, onionChecksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}
