package handlers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
)

// MaxMessageLength caps message bodies in characters.
const MaxMessageLength = 8000

var (
	scriptTagRegex = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	onEventRegex   = regexp.MustCompile(`(?i)\s+on\w+\s*=`)
)

// SanitizeMessageBody trims and cleans a message body. Bodies are stored as
// plain text, so only active-content patterns are stripped; the text itself
// is preserved byte for byte otherwise.
func SanitizeMessageBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", apperrors.BadRequest("Message exceeds maximum length")
	}

	body = scriptTagRegex.ReplaceAllString(body, "")
	body = onEventRegex.ReplaceAllString(body, " ")

	return strings.TrimSpace(body), nil
}
