// Package cryptox implements the field-level codec used for account
// credentials and the wrap/unwrap protocol for per-deployment secrets.
//
// All key material travels as standard base64 strings. Strings are encrypted
// with AES in CBC mode with PKCS#7 padding under a fixed key/IV pair, which
// makes the encryption deterministic: equal plaintexts produce equal
// ciphertexts. Stored documents depend on that property, so it must not be
// changed without migrating existing ciphertexts.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	deploymentKeySize = 32
	ivSize            = aes.BlockSize
)

// KeyPair is a base64-encoded AES key and CBC initialization vector.
type KeyPair struct {
	Key string `json:"key"`
	IV  string `json:"iv"`
}

// WrappedSecret is a KeyPair whose halves are each encrypted under a master
// KeyPair. It is safe to keep next to the rest of the deployment config.
type WrappedSecret struct {
	Key string `json:"key"`
	IV  string `json:"iv"`
}

// EncryptString encrypts plaintext (UTF-8) under the base64 key and iv and
// returns the base64 ciphertext.
//
// An empty key or iv fails with common.ErrorInvalidArgument, as does key
// material that is not valid base64 or has an unsupported length.
func EncryptString(plaintext, key, iv string) (string, error) {
	block, ivBytes, err := newBlock(key, iv)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, ivBytes).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptString reverses EncryptString.
//
// Besides the argument checks of EncryptString it fails with
// common.ErrorInvalidArgument when ciphertext is not base64, is not a whole
// number of blocks, or does not carry valid padding (wrong key or IV).
func DecryptString(ciphertext, key, iv string) (string, error) {
	block, ivBytes, err := newBlock(key, iv)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not base64: %v", common.ErrorInvalidArgument, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", common.ErrorInvalidArgument, len(raw))
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, ivBytes).CryptBlocks(out, raw)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newBlock(key, iv string) (cipher.Block, []byte, error) {
	if key == "" {
		return nil, nil, fmt.Errorf("%w: key is required", common.ErrorInvalidArgument)
	}
	if iv == "" {
		return nil, nil, fmt.Errorf("%w: iv is required", common.ErrorInvalidArgument)
	}

	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: key is not base64: %v", common.ErrorInvalidArgument, err)
	}
	ivBytes, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv is not base64: %v", common.ErrorInvalidArgument, err)
	}
	if len(ivBytes) != ivSize {
		return nil, nil, fmt.Errorf("%w: iv must be %d bytes, got %d", common.ErrorInvalidArgument, ivSize, len(ivBytes))
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInvalidArgument, err)
	}
	return block, ivBytes, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", common.ErrorInvalidArgument)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", common.ErrorInvalidArgument)
		}
	}
	return b[:len(b)-n], nil
}

// GenerateKeyPair returns a fresh random AES-256 key and IV.
func GenerateKeyPair() KeyPair {
	return KeyPair{
		Key: base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(deploymentKeySize)),
		IV:  base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(ivSize)),
	}
}

// WrapKeyPair encrypts both halves of pair under master.
func WrapKeyPair(pair, master KeyPair) (WrappedSecret, error) {
	key, err := EncryptString(pair.Key, master.Key, master.IV)
	if err != nil {
		return WrappedSecret{}, fmt.Errorf("wrap key: %w", err)
	}
	iv, err := EncryptString(pair.IV, master.Key, master.IV)
	if err != nil {
		return WrappedSecret{}, fmt.Errorf("wrap iv: %w", err)
	}
	return WrappedSecret{Key: key, IV: iv}, nil
}

// UnwrapKeyPair recovers the KeyPair wrapped by WrapKeyPair.
func UnwrapKeyPair(w WrappedSecret, master KeyPair) (KeyPair, error) {
	key, err := DecryptString(w.Key, master.Key, master.IV)
	if err != nil {
		return KeyPair{}, fmt.Errorf("unwrap key: %w", err)
	}
	iv, err := DecryptString(w.IV, master.Key, master.IV)
	if err != nil {
		return KeyPair{}, fmt.Errorf("unwrap iv: %w", err)
	}
	return KeyPair{Key: key, IV: iv}, nil
}

// NewWrappedSecret generates a deployment KeyPair and wraps it under master.
// This is what operators seed the Enc config section with.
func NewWrappedSecret(master KeyPair) (WrappedSecret, error) {
	return WrapKeyPair(GenerateKeyPair(), master)
}

// MasterFromPassphrase derives a master KeyPair from an operator passphrase
// with Argon2id. The same passphrase and salt always yield the same pair.
func MasterFromPassphrase(passphrase, salt []byte) KeyPair {
	out := argon2.IDKey(passphrase, salt, 1, 64*1024, 4, deploymentKeySize+ivSize)
	defer common.WipeByteArray(out)

	return KeyPair{
		Key: base64.StdEncoding.EncodeToString(out[:deploymentKeySize]),
		IV:  base64.StdEncoding.EncodeToString(out[deploymentKeySize:]),
	}
}

// FieldCipher encrypts individual record fields under the deployment pair.
type FieldCipher struct {
	pair KeyPair
}

// NewFieldCipher unwraps w under master and checks that the result is usable
// key material.
func NewFieldCipher(w WrappedSecret, master KeyPair) (*FieldCipher, error) {
	pair, err := UnwrapKeyPair(w, master)
	if err != nil {
		return nil, err
	}
	if _, _, err := newBlock(pair.Key, pair.IV); err != nil {
		return nil, fmt.Errorf("deployment secret: %w", err)
	}
	return &FieldCipher{pair: pair}, nil
}

// NewFieldCipherFromPair builds a FieldCipher from an already unwrapped pair.
func NewFieldCipherFromPair(pair KeyPair) (*FieldCipher, error) {
	if _, _, err := newBlock(pair.Key, pair.IV); err != nil {
		return nil, err
	}
	return &FieldCipher{pair: pair}, nil
}

func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	return EncryptString(plaintext, c.pair.Key, c.pair.IV)
}

func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	return DecryptString(ciphertext, c.pair.Key, c.pair.IV)
}
