// Package webcode derives the integer login token used by the web companion.
//
// The browser computes the same value from the plaintext account name, email
// and password, so the derivation is fixed: lowercase the three values, join
// them with ':', hash the UTF-8 bytes with SHA-256 and read the first four
// bytes of the digest as a little-endian signed 32-bit integer.
package webcode

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// Derive returns the web code for the given plaintext credentials.
func Derive(accountName, email, password string) int32 {
	combined := strings.ToLower(accountName) + ":" + strings.ToLower(email) + ":" + strings.ToLower(password)
	sum := sha256.Sum256([]byte(combined))
	return int32(binary.LittleEndian.Uint32(sum[:4]))
}
