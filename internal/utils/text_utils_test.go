package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNormalizeEmail(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"urls digits punctuation", "Visit http://evil.com NOW!! call 123", "visit now call"},
		{"email addresses", "Contact support@paypa1.com today.", "contact today"},
		{"www prefix", "Go to www.secure-login.net/verify immediately", "go to immediately"},
		{"https", "Click https://x.io/?a=1&b=2 here", "click here"},
		{"whitespace", "  Dear\t\tcustomer,\n\nyour   account  ", "dear customer your account"},
		{"underscore kept", "user_name: 42", "user_name"},
		{"unicode letters", "Ваш АККАУНТ заблокирован!", "ваш аккаунт заблокирован"},
		{"empty", "", ""},
		{"only noise", "123 !!! http://a.b", ""},
		{"url before nbsp", "visit http://a.com\u00a0hello world", "visit hello world"},
		{"url before vertical tab", "visit http://a.com\vhello", "visit hello"},
		{"url before next line", "see www.a.com\u0085now", "see now"},
		{"email before ideographic space", "mail a@b.com\u3000today", "mail today"},
		{"information separator", "one\x1ftwo", "one two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tp.NormalizeEmail(tt.input))
		})
	}
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.TruncateText("hello", 0))
	assert.Equal(t, "hello", tp.TruncateText("hello", 10))
	assert.Equal(t, "hel", tp.TruncateText("hello", 3))

	// never split a multi-byte rune
	truncated := tp.TruncateText("héllo", 2)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, "h", truncated)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "valid", tp.SanitizeUTF8("valid"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}

func TestPrepareEmail(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "verify your", tp.PrepareEmail("Verify your account\xff now", 12))
}
