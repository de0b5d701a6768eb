// Package rules implements the deterministic heuristic scorer. The engine
// is stateless and side-effect-free; scoring the same signal twice yields
// identical verdicts, indicator order included.
package rules

import (
	"fmt"
	"strings"

	"github.com/mailwatch/phishfilter/internal/core"
)

// Free consumer mail providers. A legitimate bank does not send account
// notices from one of these.
var freeMailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com", "icloud.com",
}

// Subject terms that pair suspiciously with a free-mail sender.
var financialTerms = []string{"bank", "account", "verify", "security", "update"}

// Subject terms that signal pressure or credential harvesting on their own.
var suspiciousTerms = []string{
	"urgent", "verify", "account", "suspended", "update", "security", "unusual activity", "login",
}

// Per-rule score contributions.
const (
	senderDomainScore   = 20
	authFailureScore    = 30
	subjectKeywordScore = 15
	suspiciousLinkScore = 10
	suspiciousLinkCap   = 30
)

// Engine scores an email signal against a fixed set of independent
// heuristics. No rule short-circuits another.
type Engine struct{}

// NewEngine creates a new rule engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score evaluates all rules in order and returns the additive verdict.
func (e *Engine) Score(sig *core.EmailSignal) core.RuleVerdict {
	verdict := core.RuleVerdict{Indicators: []string{}}
	subject := strings.ToLower(sig.Subject)

	// Rule 1: free consumer sender domain combined with financial subject matter.
	if domain, ok := senderDomain(sig.Sender); ok {
		if containsDomain(freeMailDomains, domain) && containsAny(subject, financialTerms) {
			verdict.Score += senderDomainScore
			verdict.Indicators = append(verdict.Indicators, "Suspicious sender domain for financial content")
		}
	}

	// Rule 2: any authentication protocol explicitly failed. One combined
	// indicator regardless of how many protocols failed; unknown never counts.
	if sig.SPF.Failed() || sig.DKIM.Failed() || sig.DMARC.Failed() {
		verdict.Score += authFailureScore
		verdict.Indicators = append(verdict.Indicators, "Email authentication failure")
	}

	// Rule 3: pressure keywords in the subject.
	if sig.Subject != "" && containsAny(subject, suspiciousTerms) {
		verdict.Score += subjectKeywordScore
		verdict.Indicators = append(verdict.Indicators, "Suspicious keywords in subject")
	}

	// Rule 4: suspicious links. An anchor that talks about a URL but does
	// not contain the real target, or a bare IP-literal domain.
	suspiciousLinks := 0
	for _, link := range sig.Links {
		if link.AnchorText != "" && strings.Contains(link.AnchorText, "http") &&
			!strings.Contains(link.AnchorText, link.URL) {
			suspiciousLinks++
		}
		if link.Domain != "" && isIPLiteral(link.Domain) {
			suspiciousLinks++
		}
	}
	if suspiciousLinks > 0 {
		verdict.Score += min(suspiciousLinks*suspiciousLinkScore, suspiciousLinkCap)
		verdict.Indicators = append(verdict.Indicators,
			fmt.Sprintf("Found %d suspicious links", suspiciousLinks))
	}

	return verdict
}

// senderDomain extracts the domain part of an address, lowered.
func senderDomain(sender string) (string, bool) {
	idx := strings.LastIndex(sender, "@")
	if idx < 0 || idx == len(sender)-1 {
		return "", false
	}
	return strings.ToLower(sender[idx+1:]), true
}

func containsDomain(domains []string, domain string) bool {
	for _, d := range domains {
		if d == domain {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// isIPLiteral reports whether the domain consists entirely of digits and dots.
func isIPLiteral(domain string) bool {
	for _, c := range domain {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}
