// Package services contains the loremgate business logic: two-phase client
// registration, metered text generation, web-code login and deployment
// secret generation. Every state change goes through store.Update, so each
// operation is one check → mutate → persist transaction.
package services

import (
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/auth"
)

// FieldCodec encrypts and decrypts individual account fields.
// *cryptox.FieldCipher satisfies it.
type FieldCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TextGenerator produces the metered payload. *lipsum.Generator satisfies it.
type TextGenerator interface {
	Words(n int) []string
	Paragraphs(n int) []string
}

// SessionIssuer mints and checks web session tokens. *auth.Issuer
// satisfies it.
type SessionIssuer interface {
	Issue(accountName string, appCode int) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// generateCode is a seam for tests.
var generateCode = common.GenerateCode

func utcNow() time.Time { return time.Now().UTC() }
