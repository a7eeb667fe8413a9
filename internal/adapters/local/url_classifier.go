package local

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mikey/phish-guard/internal/features"
	"go.uber.org/zap"
)

// DefaultURLBias is the intercept of the built-in URL model
const DefaultURLBias = -4.0

// DefaultURLWeights returns the built-in logistic weights per feature name
func DefaultURLWeights() map[string]float64 {
	return map[string]float64{
		features.URLLength:       0.02,
		features.NumDots:         0.2,
		features.NumHyphens:      0.4,
		features.NumSpecialChars: 0.3,
		features.DigitRatio:      3.0,
		features.HasIP:           4.0,
		features.NumSubdomains:   0.6,
		features.HasHTTPS:        -1.5,
		features.URLEntropy:      0.4,
		features.PathEntropy:     0.1,
	}
}

// LinearURLClassifier is a logistic regression over the URL feature vector
type LinearURLClassifier struct {
	weights   map[string]float64
	bias      float64
	threshold float64
	logger    *zap.Logger
}

// NewLinearURLClassifier creates a URL classifier. Every weight must name a known feature.
func NewLinearURLClassifier(weights map[string]float64, bias, threshold float64, logger *zap.Logger) (*LinearURLClassifier, error) {
	known := make(map[string]bool, len(features.Names))
	for _, name := range features.Names {
		known[name] = true
	}

	var unknown []string
	for name := range weights {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown features in URL weights: %v", unknown)
	}

	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}

	return &LinearURLClassifier{
		weights:   weights,
		bias:      bias,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Name returns the backend name
func (c *LinearURLClassifier) Name() string {
	return "local-linear"
}

// Score returns the phishing probability for a feature vector
func (c *LinearURLClassifier) Score(vec features.OrderedVector) float64 {
	z := c.bias
	for i, name := range vec.Names {
		z += c.weights[name] * vec.Values[i]
	}
	return sigmoid(z)
}

// ClassifyURL returns 1 when the phishing probability reaches the threshold
func (c *LinearURLClassifier) ClassifyURL(ctx context.Context, url string, vec features.OrderedVector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(vec.Names) != len(vec.Values) {
		return 0, fmt.Errorf("malformed feature vector: %d names, %d values", len(vec.Names), len(vec.Values))
	}

	score := c.Score(vec)
	c.logger.Debug("Scored URL",
		zap.String("url", url),
		zap.Float64("score", score))

	if score >= c.threshold {
		return 1, nil
	}
	return 0, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
