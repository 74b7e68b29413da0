package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// MakeRandHexString returns size random bytes encoded as hex
// (the string is twice as long as size).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size bytes from crypto/rand.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateCode draws a six-digit code in [CodeMin, CodeMax).
//
// Codes double as bearer secrets (registration codes, app codes), so the draw
// uses crypto/rand. Callers do not check the result against codes already in
// use.
func GenerateCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(CodeMax-CodeMin))
	if err != nil {
		return 0, err
	}
	return CodeMin + int(n.Int64()), nil
}
