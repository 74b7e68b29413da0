package cryptox

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pair produced by the legacy deployment tooling; ciphertexts below were
// generated with `openssl enc -aes-256-cbc` under it.
var legacyMaster = KeyPair{
	Key: "XE3kSJJRPNY9zDqyGpsNH2kAapZbYko1OqNYqp0voSw=",
	IV:  "7l++7FEGWs+tjCGxz8RGYQ==",
}

func TestEncryptString_KnownAnswer(t *testing.T) {
	tests := []struct {
		name  string
		plain string
		want  string
	}{
		{"email", "a@x.com", "JwHdwHfJAMWQCD7BGmsO6Q=="},
		{"empty is one padding block", "", "hbUgJNK4DqdBCrG4TgxBXg=="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncryptString(tt.plain, legacyMaster.Key, legacyMaster.IV)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := DecryptString(got, legacyMaster.Key, legacyMaster.IV)
			require.NoError(t, err)
			assert.Equal(t, tt.plain, back)
		})
	}
}

func TestEncryptString_RoundTrip(t *testing.T) {
	pair := GenerateKeyPair()
	inputs := []string{"x", "pw1", "exactly16bytes!!", "ünïcødé ✓", string(bytes.Repeat([]byte("a"), 1000))}
	for _, in := range inputs {
		ct, err := EncryptString(in, pair.Key, pair.IV)
		require.NoError(t, err)
		pt, err := DecryptString(ct, pair.Key, pair.IV)
		require.NoError(t, err)
		assert.Equal(t, in, pt)
	}
}

func TestEncryptString_Deterministic(t *testing.T) {
	pair := GenerateKeyPair()
	a, err := EncryptString("same", pair.Key, pair.IV)
	require.NoError(t, err)
	b, err := EncryptString("same", pair.Key, pair.IV)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncryptString_InvalidArguments(t *testing.T) {
	shortIV := base64.StdEncoding.EncodeToString([]byte("short"))
	tests := []struct {
		name    string
		key, iv string
	}{
		{"missing key", "", legacyMaster.IV},
		{"missing iv", legacyMaster.Key, ""},
		{"key not base64", "%%%", legacyMaster.IV},
		{"iv wrong size", legacyMaster.Key, shortIV},
		{"key wrong size", base64.StdEncoding.EncodeToString([]byte("abc")), legacyMaster.IV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncryptString("x", tt.key, tt.iv)
			assert.ErrorIs(t, err, common.ErrorInvalidArgument)

			_, err = DecryptString("JwHdwHfJAMWQCD7BGmsO6Q==", tt.key, tt.iv)
			assert.ErrorIs(t, err, common.ErrorInvalidArgument)
		})
	}
}

func TestDecryptString_BadCiphertext(t *testing.T) {
	other := GenerateKeyPair()
	ct, err := EncryptString("a@x.com", legacyMaster.Key, legacyMaster.IV)
	require.NoError(t, err)

	_, err = DecryptString("not base64!", legacyMaster.Key, legacyMaster.IV)
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)

	_, err = DecryptString(base64.StdEncoding.EncodeToString([]byte("abc")), legacyMaster.Key, legacyMaster.IV)
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)

	// a wrong key almost always breaks the padding; when it does not the
	// plaintext must still differ
	pt, err := DecryptString(ct, other.Key, other.IV)
	if err == nil {
		assert.NotEqual(t, "a@x.com", pt)
	} else {
		assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	}
}

func TestWrapUnwrapKeyPair(t *testing.T) {
	pair := GenerateKeyPair()

	w, err := WrapKeyPair(pair, legacyMaster)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Key, w.Key)
	assert.NotEqual(t, pair.IV, w.IV)

	got, err := UnwrapKeyPair(w, legacyMaster)
	require.NoError(t, err)
	assert.Equal(t, pair, got)
}

func TestNewWrappedSecret_FreshPairs(t *testing.T) {
	a, err := NewWrappedSecret(legacyMaster)
	require.NoError(t, err)
	b, err := NewWrappedSecret(legacyMaster)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	pa, err := UnwrapKeyPair(a, legacyMaster)
	require.NoError(t, err)
	key, err := base64.StdEncoding.DecodeString(pa.Key)
	require.NoError(t, err)
	iv, err := base64.StdEncoding.DecodeString(pa.IV)
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Len(t, iv, 16)
}

func TestGenerateKeyPair_Usable(t *testing.T) {
	p := GenerateKeyPair()
	_, err := EncryptString("x", p.Key, p.IV)
	assert.NoError(t, err)
}

func TestMasterFromPassphrase(t *testing.T) {
	a := MasterFromPassphrase([]byte("correct horse"), []byte("salt-1"))
	b := MasterFromPassphrase([]byte("correct horse"), []byte("salt-1"))
	c := MasterFromPassphrase([]byte("correct horse"), []byte("salt-2"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err := EncryptString("x", a.Key, a.IV)
	assert.NoError(t, err)
}

func TestFieldCipher(t *testing.T) {
	w, err := NewWrappedSecret(legacyMaster)
	require.NoError(t, err)

	fc, err := NewFieldCipher(w, legacyMaster)
	require.NoError(t, err)

	ct, err := fc.Encrypt("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", ct)

	pt, err := fc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "pw1", pt)
}

func TestNewFieldCipher_WrongMaster(t *testing.T) {
	w, err := NewWrappedSecret(legacyMaster)
	require.NoError(t, err)

	_, err = NewFieldCipher(w, GenerateKeyPair())
	assert.Error(t, err)
}

func TestNewFieldCipherFromPair_Invalid(t *testing.T) {
	_, err := NewFieldCipherFromPair(KeyPair{})
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}
