// Package token issues and verifies the signed, time-limited tokens used in
// email links: digest approval, opt-in confirmation, and unsubscribe.
// Tokens are verified, never stored; single-use behaviour comes from the
// terminal state they act on (the digest's sent flag, the contact row), not
// from revocation.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose discriminates what a token authorizes.
type Purpose string

const (
	PurposeApprove     Purpose = "approve"
	PurposeConfirm     Purpose = "confirm"
	PurposeUnsubscribe Purpose = "unsubscribe"
)

// Verification errors
var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims carries the signed payload. Week is set for approval tokens;
// Email/Locale/Topics for contact-lifecycle tokens.
type Claims struct {
	Purpose Purpose  `json:"purpose"`
	Week    string   `json:"week,omitempty"`
	Email   string   `json:"email,omitempty"`
	Locale  string   `json:"locale,omitempty"`
	Topics  []string `json:"topics,omitempty"`
	jwt.RegisteredClaims
}

// Signer signs and verifies tokens with an HMAC secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer from the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// ApprovalToken issues a token authorizing approval of one digest week.
// PRE: week is a valid week key; ttl > 0
// POST: Returns a signed token expiring after ttl
func (s *Signer) ApprovalToken(week string, ttl time.Duration) (string, error) {
	return s.sign(Claims{Purpose: PurposeApprove, Week: week}, ttl)
}

// ConfirmToken issues a double-opt-in token carrying the pending
// subscription preferences.
func (s *Signer) ConfirmToken(email, locale string, topics []string, ttl time.Duration) (string, error) {
	return s.sign(Claims{Purpose: PurposeConfirm, Email: email, Locale: locale, Topics: topics}, ttl)
}

// UnsubscribeToken issues the token embedded in every digest's unsubscribe
// and manage-preferences links. Long-lived by design: the link must keep
// working from old emails.
func (s *Signer) UnsubscribeToken(email string, ttl time.Duration) (string, error) {
	return s.sign(Claims{Purpose: PurposeUnsubscribe, Email: email}, ttl)
}

func (s *Signer) sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and purpose, returning the claims.
// PRE: tokenString is non-empty
// POST: Returns claims, or ErrTokenExpired / ErrTokenInvalid
func (s *Signer) Verify(tokenString string, purpose Purpose) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: wrong purpose %q", ErrTokenInvalid, claims.Purpose)
	}
	return claims, nil
}
