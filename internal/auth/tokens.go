package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"

	"authapi_backend/internal/models"
)

// SingleUseTokenBytes is the entropy of confirmation, reset and email-change tokens.
const SingleUseTokenBytes = 128

// GenerateToken returns SingleUseTokenBytes random bytes encoded as
// unpadded base64url, safe to embed in a query string as is.
func GenerateToken() (string, error) {
	b := make([]byte, SingleUseTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokensEqual reports whether presented matches a non-empty stored token.
func TokensEqual(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// LinkBuilder builds the links mailed to users for each token kind.
type LinkBuilder struct {
	AccountConfirmation     string
	EmailChangeConfirmation string
	ResetPassword           string
}

// QueryParam is the query parameter that carries a token of the given kind.
func QueryParam(kind models.TokenKind) string {
	switch kind {
	case models.TokenKindResetPassword:
		return "resetPasswordToken"
	default:
		return "confirmationToken"
	}
}

// Build returns base?userId=<id>&<param>=<token> for the kind.
func (b LinkBuilder) Build(kind models.TokenKind, userID, token string) (string, error) {
	var base string
	switch kind {
	case models.TokenKindConfirmation:
		base = b.AccountConfirmation
	case models.TokenKindChangeEmail:
		base = b.EmailChangeConfirmation
	case models.TokenKindResetPassword:
		base = b.ResetPassword
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid %s link base %q: %w", kind, base, err)
	}
	q := u.Query()
	q.Set("userId", userID)
	q.Set(QueryParam(kind), token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
