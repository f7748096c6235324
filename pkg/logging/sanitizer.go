// Package logging provides log sanitization helpers. Provider errors can echo
// back request URLs or headers carrying the assistant API key; sanitize them
// before they reach a log line.
package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

var (
	// Matches: api_key=xxx, apikey=xxx, key=xxx query or form parameters
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{16,}`)

	// Matches Authorization bearer tokens
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9-_.]+`)

	// Matches Anthropic-style secret keys appearing bare in messages
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9-_]{16,}`)
)

// SanitizeError redacts credential material from an error message.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize redacts credential material from an arbitrary string.
func Sanitize(s string) string {
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = secretKeyPattern.ReplaceAllString(s, RedactedText)
	return s
}
