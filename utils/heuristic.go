// utils/heuristic.go
package utils

import (
	"net"
	"regexp"
	"strings"
	"time"
)

const (
	probeTimeout = 3 * time.Second
	maxProbedMX  = 3
)

var (
	// Local-part shape accepted by the major consumer providers
	consumerLocalPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

	// Permissive shapes seen on corporate domains
	corporateLocalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[a-zA-Z0-9]+([._-][a-zA-Z0-9]+)*$`),
		regexp.MustCompile(`^[a-z]+\.[a-z]+$`),
	}

	firstLastPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+$`)
	digitRunPattern  = regexp.MustCompile(`[0-9]{4,}`)
	structuralShape  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
)

// DeliverabilityCheck reports which heuristic signal, if any, accepted the
// local part. Method is one of provider_pattern, corporate_pattern,
// mx_reachable, structural_score, none.
type DeliverabilityCheck struct {
	Deliverable     bool    `json:"deliverable"`
	Method          string  `json:"method"`
	StructuralScore float64 `json:"structural_score,omitempty"`
}

// DeliverabilityChecker approximates whether a mailbox plausibly exists
// without an SMTP handshake. The reachability probe is a weak signal and its
// failure never hard-rejects a candidate.
type DeliverabilityChecker struct {
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

func NewDeliverabilityChecker() *DeliverabilityChecker {
	return &DeliverabilityChecker{dial: net.DialTimeout}
}

// CheckDeliverability evaluates the heuristic signals in priority order and
// returns on the first match.
func (dc *DeliverabilityChecker) CheckDeliverability(localPart, domain string, mxHosts []string) DeliverabilityCheck {
	localPart = strings.ToLower(localPart)
	domain = strings.ToLower(domain)

	// (a) consumer providers accept a well-known local-part alphabet
	if matchKnownProvider(domain) != "" && consumerLocalPattern.MatchString(localPart) {
		return DeliverabilityCheck{Deliverable: true, Method: "provider_pattern"}
	}

	// (b) corporate domains: permissive local-part shapes
	if matchKnownProvider(domain) == "" {
		for _, p := range corporateLocalPatterns {
			if p.MatchString(localPart) {
				return DeliverabilityCheck{Deliverable: true, Method: "corporate_pattern"}
			}
		}
	}

	// (c) reachability probe against the first few mail exchangers
	if dc.probeMailServers(mxHosts) {
		return DeliverabilityCheck{Deliverable: true, Method: "mx_reachable"}
	}

	// (d) structural confidence score
	score := structuralConfidence(localPart)
	if score >= 0.6 {
		return DeliverabilityCheck{Deliverable: true, Method: "structural_score", StructuralScore: score}
	}

	return DeliverabilityCheck{Deliverable: false, Method: "none", StructuralScore: score}
}

// probeMailServers dials up to the first three MX hosts on port 25. A
// completed TCP connect counts as reachable; this is not a protocol
// handshake.
func (dc *DeliverabilityChecker) probeMailServers(mxHosts []string) bool {
	for i, host := range mxHosts {
		if i >= maxProbedMX {
			break
		}
		conn, err := dc.dial("tcp", net.JoinHostPort(host, "25"), probeTimeout)
		if err != nil {
			continue
		}
		conn.Close()
		return true
	}
	return false
}

// structuralConfidence scores the local part's shape, capped at 1.0.
func structuralConfidence(localPart string) float64 {
	score := 0.0

	if len(localPart) >= 3 && len(localPart) <= 20 {
		score += 0.2
	}
	if len(localPart) > 0 && isLetter(rune(localPart[0])) {
		score += 0.1
	}
	if !digitRunPattern.MatchString(localPart) {
		score += 0.1
	}
	if !strings.Contains(localPart, "..") &&
		!strings.Contains(localPart, "__") &&
		!strings.Contains(localPart, "--") {
		score += 0.1
	}
	if !hasConsecutiveSeparators(localPart) {
		score += 0.1
	}
	if firstLastPattern.MatchString(localPart) {
		score += 0.3
	}
	if structuralShape.MatchString(localPart) {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isSeparator(r rune) bool {
	return r == '.' || r == '_' || r == '-'
}

// hasConsecutiveSeparators reports whether any two separator characters,
// same or mixed, are adjacent.
func hasConsecutiveSeparators(s string) bool {
	prev := false
	for _, r := range s {
		sep := isSeparator(r)
		if sep && prev {
			return true
		}
		prev = sep
	}
	return false
}
