package core

import (
	"time"
)

// Label is the three-way classification of an email
type Label string

const (
	LabelLegitimate Label = "Legitimate"
	LabelSuspicious Label = "Suspicious"
	LabelPhishing   Label = "Phishing"
)

// Verdict is the outcome of the email decision policy
type Verdict struct {
	Label      Label
	Confidence float64
}

// URLVerdict is the outcome of the URL decision policy. URLs have no suspicious tier.
type URLVerdict struct {
	IsPhishing bool
}

// EmailProbabilities is a two-class probability distribution from an email classifier
type EmailProbabilities struct {
	Legitimate float64
	Phishing   float64
}

// Verdict sources for URL checks
const (
	SourceModel     = "model"
	SourceWhitelist = "whitelist"
	SourceCache     = "cache"
)

// EmailAnalysisResult represents the result of email analysis
type EmailAnalysisResult struct {
	Verdict
	Probabilities  *EmailProbabilities
	ShortCircuited bool
	AnalyzedAt     time.Time
	ModelUsed      string
	ProcessingID   string
}

// URLAnalysisResult represents the result of URL analysis
type URLAnalysisResult struct {
	URLVerdict
	URL          string
	Source       string
	AnalyzedAt   time.Time
	ModelUsed    string
	ProcessingID string
}

// CacheEntry is a cached URL verdict keyed by normalized URL
type CacheEntry struct {
	URL        string
	IsPhishing bool
	ModelUsed  string
	LastSeen   time.Time
	ExpiresAt  time.Time
}
