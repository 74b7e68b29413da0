package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	assert.Len(t, s, n*2)
	_, err = hex.DecodeString(s)
	assert.NoError(t, err)
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

func TestGenerateRandByteArray_Length(t *testing.T) {
	assert.Len(t, GenerateRandByteArray(24), 24)
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		c, err := GenerateCode()
		require.NoError(t, err)
		if c < CodeMin || c >= CodeMax {
			t.Fatalf("code %d outside [%d, %d)", c, CodeMin, CodeMax)
		}
	}
}
