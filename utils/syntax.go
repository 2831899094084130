// utils/syntax.go
package utils

import (
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
)

const (
	maxLocalPartLength = 64
	maxDomainLength    = 253
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SyntaxCheck is the outcome of the pure syntax stage. It never touches the
// network, so a failure here is terminal for the candidate.
type SyntaxCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateSyntax performs an RFC-approximate format check with explicit
// length caps and rejection of consecutive dots.
func ValidateSyntax(email string) SyntaxCheck {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := checkmail.ValidateFormat(email); err != nil {
		return SyntaxCheck{Valid: false, Reason: "invalid email format: " + err.Error()}
	}
	if !emailRegex.MatchString(email) {
		return SyntaxCheck{Valid: false, Reason: "invalid email format"}
	}

	localPart, domain, ok := SplitAddress(email)
	if !ok {
		return SyntaxCheck{Valid: false, Reason: "invalid email format"}
	}
	if len(localPart) > maxLocalPartLength {
		return SyntaxCheck{Valid: false, Reason: "local part exceeds 64 characters"}
	}
	if len(domain) > maxDomainLength {
		return SyntaxCheck{Valid: false, Reason: "domain exceeds 253 characters"}
	}
	if strings.Contains(email, "..") {
		return SyntaxCheck{Valid: false, Reason: "consecutive dots not allowed"}
	}

	return SyntaxCheck{Valid: true}
}

// SplitAddress splits an address into local part and domain.
func SplitAddress(email string) (string, string, bool) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ExtractDomain extracts domain from email address
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
