package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// injectionPatterns match common prompt-injection and command-smuggling phrasing.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)override\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)reveal\s+(your\s+)?system\s+prompt`),
	regexp.MustCompile(`(?i)new\s+context\s*:`),
	regexp.MustCompile(`(?i)instead\s+of\s+the\s+above`),
	regexp.MustCompile(`(?i)\brm\s+-rf\b`),
	regexp.MustCompile(`/etc/(passwd|shadow)`),
	regexp.MustCompile(`(?i)(eval|exec|system)\s*\(`),
}

var defaultSensitiveKeywords = []string{"password", "ssn", "credit card", "api key", "secret"}

// Flags attached to audit events.
const (
	FlagInjection = "prompt_injection"
	FlagSensitive = "sensitive_keyword"
)

// Screener inspects inbound chat messages. It only rejects messages over the
// length limit; everything else is reported as flags for the audit trail.
type Screener struct {
	maxLength int
	keywords  []string
}

// NewScreener returns a screener. A maxLength of zero disables the limit; a
// nil keyword list uses the defaults.
func NewScreener(maxLength int, keywords []string) *Screener {
	if keywords == nil {
		keywords = defaultSensitiveKeywords
	}
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return &Screener{maxLength: maxLength, keywords: lower}
}

// CheckLength rejects messages longer than the configured limit in characters.
func (s *Screener) CheckLength(message string) error {
	if s.maxLength <= 0 {
		return nil
	}
	if n := utf8.RuneCountInString(message); n > s.maxLength {
		return fmt.Errorf("Message is too long: %d characters (max %d)", n, s.maxLength)
	}
	return nil
}

// Flags returns the audit flags raised by message.
func (s *Screener) Flags(message string) []string {
	var flags []string
	for _, p := range injectionPatterns {
		if p.MatchString(message) {
			flags = append(flags, FlagInjection)
			break
		}
	}
	lower := strings.ToLower(message)
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			flags = append(flags, FlagSensitive)
			break
		}
	}
	return flags
}
