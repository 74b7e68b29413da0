// Package auth issues and verifies the short-lived session tokens handed to
// the web companion after a successful web-code login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the account a session belongs to alongside the standard
// registered claims.
type Claims struct {
	jwt.RegisteredClaims
	AccountName string `json:"account_name"`
	AppCode     int    `json:"app_code"`
}

func GenerateToken(accountName string, appCode int, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountName: accountName,
		AppCode:     appCode,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseToken verifies tokenString and returns its claims. Expired tokens
// fail with common.ErrTokenExpired, anything else with common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountName == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// Issuer binds a secret and lifetime so callers only pass the account.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(accountName string, appCode int) (string, error) {
	return GenerateToken(accountName, appCode, i.secret, i.ttl, i.now())
}

func (i *Issuer) Verify(token string) (*Claims, error) {
	return ParseToken(token, i.secret)
}
