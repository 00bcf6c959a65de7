package errors

import (
	"strings"
	"unicode"
)

// MaxMessageLength bounds a single conversational message accepted at the
// CLI and HTTP boundaries.
const MaxMessageLength = 64 * 1024

// ValidateMessage validates a conversational message before it is sent to
// the provider. Empty or whitespace-only messages are rejected, as are
// messages containing NUL bytes.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return New(ErrCodeInvalidInput, "message cannot be empty")
	}
	if len(text) > MaxMessageLength {
		return New(ErrCodeInvalidInput, "message too long (max %d bytes)", MaxMessageLength)
	}
	if strings.ContainsRune(text, '\x00') {
		return New(ErrCodeInvalidInput, "message contains invalid characters")
	}
	return nil
}

// ValidateCanvasID validates a canvas or session identifier used in URLs and
// file names.
//
// Validation rules:
//   - Identifier cannot be empty
//   - Maximum length of 128 characters
//   - Only letters, digits, '-', '_' and '.'
//   - No path traversal sequences (..)
func ValidateCanvasID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "canvas id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "canvas id too long (max 128 characters)")
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "canvas id cannot contain path traversal sequences (..)")
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return New(ErrCodeInvalidInput, "canvas id contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateDimension validates a caller-supplied width or height.
func ValidateDimension(name string, v float64) error {
	if v < 0 {
		return New(ErrCodeInvalidInput, "%s cannot be negative", name)
	}
	if v != v { // NaN
		return New(ErrCodeInvalidInput, "%s is not a number", name)
	}
	return nil
}
