package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSignupOTP(t *testing.T) {
	subject, text, html, err := Render("signup_otp", map[string]any{
		"Name":             "Ada Lovelace",
		"Code":             "Abc123",
		"ExpiresInMinutes": 15,
		"AppName":          "go-realtime-relay",
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "Confirm")
	assert.Contains(t, text, "Abc123")
	assert.Contains(t, html, "Abc123")
	assert.Contains(t, html, "Ada Lovelace")
	assert.Contains(t, html, "15 minutes")
}

func TestRenderLoginOTP(t *testing.T) {
	subject, _, html, err := Render("login_otp", map[string]any{
		"Name": "Ada Lovelace",
		"Code": "Xyz789",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your login code", subject)
	assert.Contains(t, html, "Xyz789")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := Render("universal", nil)
	assert.Error(t, err)
}
