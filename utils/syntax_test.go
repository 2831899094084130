package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSyntax_ValidAddresses(t *testing.T) {
	valid := []string{
		"john.doe@example.com",
		"j_doe@example.co.uk",
		"info@acme.io",
		"first+tag@example.com",
		"  John.Doe@Example.COM  ", // trimmed and lowercased before checking
	}

	for _, email := range valid {
		t.Run(email, func(t *testing.T) {
			check := ValidateSyntax(email)
			assert.True(t, check.Valid, "expected %q to be valid: %s", email, check.Reason)
			assert.Empty(t, check.Reason)
		})
	}
}

func TestValidateSyntax_InvalidAddresses(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"no at sign", "not-an-email"},
		{"empty", ""},
		{"missing local part", "@example.com"},
		{"missing domain", "john@"},
		{"no tld", "john@example"},
		{"consecutive dots", "john..doe@example.com"},
		{"spaces inside", "john doe@example.com"},
		{"local part too long", strings.Repeat("a", 65) + "@example.com"},
		{"domain too long", "john@" + strings.Repeat("a", 250) + ".com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ValidateSyntax(tt.email)
			assert.False(t, check.Valid)
			assert.NotEmpty(t, check.Reason)
		})
	}
}

func TestSplitAddress(t *testing.T) {
	local, domain, ok := SplitAddress("john.doe@example.com")
	assert.True(t, ok)
	assert.Equal(t, "john.doe", local)
	assert.Equal(t, "example.com", domain)

	_, _, ok = SplitAddress("no-at-sign")
	assert.False(t, ok)

	_, _, ok = SplitAddress("two@at@signs")
	assert.False(t, ok)
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("john@example.com"))
	assert.Equal(t, "", ExtractDomain("not-an-email"))
}

func TestIsDisposableDomain(t *testing.T) {
	assert.True(t, IsDisposableDomain("mailinator.com"))
	assert.False(t, IsDisposableDomain("gmail.com"))
	assert.False(t, IsDisposableDomain("acme.com"))
}
