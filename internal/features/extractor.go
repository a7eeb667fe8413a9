package features

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Feature names, in the canonical extraction order
const (
	URLLength       = "url_length"
	DomainLength    = "domain_length"
	PathLength      = "path_length"
	NumDots         = "num_dots"
	NumHyphens      = "num_hyphens"
	NumSpecialChars = "num_special_chars"
	NumDigits       = "num_digits"
	DigitRatio      = "digit_ratio"
	HasIP           = "has_ip"
	NumSubdomains   = "num_subdomains"
	HasHTTPS        = "has_https"
	HasWWW          = "has_www"
	URLEntropy      = "url_entropy"
	PathEntropy     = "path_entropy"
)

// Names lists every feature produced by the Extractor in canonical order
var Names = []string{
	URLLength,
	DomainLength,
	PathLength,
	NumDots,
	NumHyphens,
	NumSpecialChars,
	NumDigits,
	DigitRatio,
	HasIP,
	NumSubdomains,
	HasHTTPS,
	HasWWW,
	URLEntropy,
	PathEntropy,
}

var ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

// Extractor computes lexical features from URL strings.
// It holds no state and is safe for concurrent use.
type Extractor struct{}

// NewExtractor creates a new feature extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Names returns the feature names the extractor produces, in order
func (e *Extractor) Names() []string {
	names := make([]string, len(Names))
	copy(names, Names)
	return names
}

// Extract computes the feature vector for a URL. It never fails: a component
// that cannot be parsed contributes 0 to every feature derived from it.
func (e *Extractor) Extract(url string) Vector {
	var netloc, path string
	if parts, err := SplitURL(url); err == nil {
		netloc = parts.Netloc
		path = parts.Path
	}

	urlLength := utf8.RuneCountInString(url)
	digits := countDigits(url)

	digitRatio := 0.0
	if urlLength > 0 {
		digitRatio = float64(digits) / float64(urlLength)
	}

	return Vector{
		{URLLength, float64(urlLength)},
		{DomainLength, float64(utf8.RuneCountInString(netloc))},
		{PathLength, float64(utf8.RuneCountInString(path))},
		{NumDots, float64(strings.Count(url, "."))},
		{NumHyphens, float64(strings.Count(url, "-"))},
		{NumSpecialChars, float64(countSpecialChars(url))},
		{NumDigits, float64(digits)},
		{DigitRatio, digitRatio},
		{HasIP, flag(ipv4Pattern.MatchString(url))},
		{NumSubdomains, float64(countSubdomains(netloc))},
		{HasHTTPS, flag(strings.HasPrefix(url, "https"))},
		{HasWWW, flag(strings.Contains(url, "www."))},
		{URLEntropy, Entropy(url)},
		{PathEntropy, Entropy(path)},
	}
}

func countDigits(s string) int {
	n := 0
	for _, c := range s {
		if unicode.IsDigit(c) {
			n++
		}
	}
	return n
}

// countSpecialChars counts characters outside letters, digits and . / ? = & -
func countSpecialChars(s string) int {
	n := 0
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '/', c == '?', c == '=', c == '&', c == '-':
		default:
			n++
		}
	}
	return n
}

// countSubdomains treats the last two labels as registered domain and TLD
func countSubdomains(netloc string) int {
	labels := strings.Count(netloc, ".") + 1
	if labels > 2 {
		return labels - 2
	}
	return 0
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
