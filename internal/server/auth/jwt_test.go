package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("alice", 123456, secret, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.AccountName)
	assert.Equal(t, 123456, claims.AppCode)
	assert.Equal(t, "alice", claims.Subject)
	assert.Len(t, claims.ID, 32)

	other, err := GenerateToken("alice", 123456, secret, time.Hour, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, tok, other, "each token carries its own id")
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", 1, secret, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", 2, []byte("right-secret"), time.Hour, time.Now())
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong-secret"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not-a-jwt", []byte("s"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{AccountName: "alice"}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_MissingAccount(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer(t *testing.T) {
	t.Parallel()

	fixed := time.Now()
	i := NewIssuer("k", 10*time.Minute)
	i.now = func() time.Time { return fixed }

	tok, err := i.Issue("bob", 654321)
	require.NoError(t, err)

	claims, err := i.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.AccountName)
	assert.WithinDuration(t, fixed.Add(10*time.Minute), claims.ExpiresAt.Time, time.Second)
}
