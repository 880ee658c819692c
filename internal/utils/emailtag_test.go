package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagEmail(t *testing.T) {
	tests := []struct {
		name  string
		tag   string
		email string
		want  string
	}{
		{"plain", "acme", "user@example.com", "acme+user@example.com"},
		{"uppercase input", "acme", " User@Example.COM ", "acme+user@example.com"},
		{"already tagged", "acme", "acme+user@example.com", "acme+user@example.com"},
		{"plus in local part", "acme", "user+label@example.com", "acme+user+label@example.com"},
		{"other tenant tag kept", "acme", "beta+user@example.com", "acme+beta+user@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TagEmail(tt.tag, tt.email))
		})
	}
}

func TestDetagEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", DetagEmail("acme", "acme+user@example.com"))
	// Untagged addresses pass through.
	assert.Equal(t, "user@example.com", DetagEmail("acme", "user@example.com"))
	// A different tenant's tag is not stripped.
	assert.Equal(t, "beta+user@example.com", DetagEmail("acme", "beta+user@example.com"))
}

func TestTagDetagRoundTrip(t *testing.T) {
	for _, email := range []string{"a@b.co", "user.name@example.com", "x+y@z.io"} {
		assert.Equal(t, email, DetagEmail("acme", TagEmail("acme", email)))
	}
}
