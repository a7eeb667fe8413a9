package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// space is every character that separates words, including the Unicode
// separators and the C0 information separators
const space = `\s\x0B\x1C-\x1F\x85\p{Z}`

var (
	urlPattern         = regexp.MustCompile(`http[^` + space + `]+|www[^` + space + `]+`)
	emailPattern       = regexp.MustCompile(`[^` + space + `]+@[^` + space + `]+`)
	digitPattern       = regexp.MustCompile(`\p{Nd}+`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_` + space + `]`)
)

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || (r >= 0x1C && r <= 0x1F)
}

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// NormalizeEmail canonicalizes raw email text the way the email models expect it:
// lowercased, with URLs, email addresses, digits and punctuation removed and
// whitespace collapsed. URLs are removed before punctuation so that their
// separators do not leave fragments behind.
func (tp *TextProcessor) NormalizeEmail(text string) string {
	text = cases.Lower(language.Und).String(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = digitPattern.ReplaceAllString(text, "")
	text = punctuationPattern.ReplaceAllString(text, "")
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 bytes from text
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// PrepareEmail sanitizes, normalizes and truncates raw email text in one operation
func (tp *TextProcessor) PrepareEmail(text string, maxSize int) string {
	return strings.TrimSpace(tp.TruncateText(tp.NormalizeEmail(tp.SanitizeUTF8(text)), maxSize))
}
