package local

import (
	"context"
	"strings"

	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// KeywordGroup is a weighted list of phrases matched on whole words
type KeywordGroup struct {
	Name     string
	Weight   float64
	Keywords []string
}

// DefaultEmailBias is the intercept of the built-in email model
const DefaultEmailBias = -2.5

// DefaultKeywordGroups returns the built-in lexicon. Phrases are written in
// normalized form: lowercase, no digits, no punctuation.
func DefaultKeywordGroups() []KeywordGroup {
	return []KeywordGroup{
		{
			Name:   "urgency",
			Weight: 0.8,
			Keywords: []string{
				"urgent", "immediately", "asap", "right away", "time sensitive",
				"within hours", "final notice", "act now", "expires today", "hurry",
			},
		},
		{
			Name:   "credentials",
			Weight: 1.0,
			Keywords: []string{
				"verify", "password", "account", "suspended", "login", "log in",
				"confirm your", "security alert", "unusual activity", "locked", "sign in",
			},
		},
		{
			Name:   "financial",
			Weight: 0.7,
			Keywords: []string{
				"wire transfer", "payment", "invoice", "bank account", "routing number",
				"refund", "gift card", "credit card", "billing", "prepaid card",
			},
		},
		{
			Name:   "reward",
			Weight: 0.9,
			Keywords: []string{
				"winner", "prize", "congratulations", "claim", "free", "lottery", "reward",
			},
		},
	}
}

// LexiconEmailClassifier scores normalized email text with weighted keyword counts
type LexiconEmailClassifier struct {
	groups []KeywordGroup
	bias   float64
	logger *zap.Logger
}

// NewLexiconEmailClassifier creates a new lexicon email classifier
func NewLexiconEmailClassifier(groups []KeywordGroup, bias float64, logger *zap.Logger) *LexiconEmailClassifier {
	return &LexiconEmailClassifier{
		groups: groups,
		bias:   bias,
		logger: logger,
	}
}

// Name returns the backend name
func (c *LexiconEmailClassifier) Name() string {
	return "local-lexicon"
}

// ClassifyEmail returns the two-class distribution for normalized text
func (c *LexiconEmailClassifier) ClassifyEmail(ctx context.Context, text string) (core.EmailProbabilities, error) {
	if err := ctx.Err(); err != nil {
		return core.EmailProbabilities{}, err
	}

	padded := " " + text + " "
	z := c.bias
	counts := make(map[string]int, len(c.groups))
	for _, group := range c.groups {
		n := countKeywords(padded, group.Keywords)
		counts[group.Name] = n
		z += float64(n) * group.Weight
	}

	p := sigmoid(z)
	c.logger.Debug("Scored email",
		zap.Any("keyword_counts", counts),
		zap.Float64("phishing_probability", p))

	return core.EmailProbabilities{Legitimate: 1 - p, Phishing: p}, nil
}

// countKeywords counts how many keywords appear as whole words in padded text
func countKeywords(padded string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(padded, " "+keyword+" ") {
			count++
		}
	}
	return count
}
