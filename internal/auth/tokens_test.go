package auth

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"authapi_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken()
	require.NoError(t, err)

	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, SingleUseTokenBytes)

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTokensEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, TokensEqual("abc", "abc"))
	assert.False(t, TokensEqual("abc", "abd"))
	assert.False(t, TokensEqual("", ""))
	assert.False(t, TokensEqual("abc", ""))
}

func TestLinkBuilder_Build(t *testing.T) {
	t.Parallel()

	b := LinkBuilder{
		AccountConfirmation:     "http://localhost:5000/api/v1/users/confirm-account",
		EmailChangeConfirmation: "http://localhost:5000/api/v1/users/confirm-change-email",
		ResetPassword:           "http://localhost:5000/api/v1/users/reset-password",
	}
	token, err := GenerateToken()
	require.NoError(t, err)

	tests := []struct {
		kind     models.TokenKind
		wantPath string
		param    string
	}{
		{models.TokenKindConfirmation, "/api/v1/users/confirm-account", "confirmationToken"},
		{models.TokenKindChangeEmail, "/api/v1/users/confirm-change-email", "confirmationToken"},
		{models.TokenKindResetPassword, "/api/v1/users/reset-password", "resetPasswordToken"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			link, err := b.Build(tt.kind, "user-1", token)
			require.NoError(t, err)

			u, err := url.Parse(link)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, u.Path)
			assert.Equal(t, "user-1", u.Query().Get("userId"))
			assert.Equal(t, token, u.Query().Get(tt.param))
			assert.True(t, strings.Contains(link, token), "token must survive query encoding unchanged")
		})
	}

	_, err = b.Build(models.TokenKind("unknown"), "user-1", token)
	assert.Error(t, err)
}
