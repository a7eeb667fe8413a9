package core

// Email policy thresholds on the phishing probability
const (
	PhishingThreshold   = 0.80
	SuspiciousThreshold = 0.50
)

// MinEmailLength is the shortest trimmed email text, in characters, worth classifying
const MinEmailLength = 10

// Decide maps an email probability pair onto a verdict. The first matching
// threshold wins and the pair is used as given, without renormalization.
func Decide(probPhishing, probLegit float64) Verdict {
	switch {
	case probPhishing >= PhishingThreshold:
		return Verdict{Label: LabelPhishing, Confidence: probPhishing}
	case probPhishing >= SuspiciousThreshold:
		return Verdict{Label: LabelSuspicious, Confidence: probPhishing}
	default:
		return Verdict{Label: LabelLegitimate, Confidence: probLegit}
	}
}

// DecideURL passes the URL classifier's discrete prediction through
func DecideURL(prediction int) URLVerdict {
	return URLVerdict{IsPhishing: prediction == 1}
}
