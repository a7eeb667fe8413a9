package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/utils"
	"go.uber.org/zap"
)

// AllowList reports hosts that are trusted without classification
type AllowList interface {
	IsAllowed(host string) bool
}

// ServiceOptions holds the tunables of the detection service
type ServiceOptions struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxEmailSize int
}

// DetectionService is the core service for phishing detection. Everything it
// holds is built once at startup and never mutated, apart from the optional cache.
type DetectionService struct {
	urlClassifier   URLClassifier
	emailClassifier EmailClassifier
	extractor       *features.Extractor
	schema          features.Schema
	textProcessor   *utils.TextProcessor
	allowList       AllowList
	cache           VerdictCache
	logger          *zap.Logger
	opts            ServiceOptions
}

// NewDetectionService creates a new detection service. It fails with a
// *features.SchemaMismatchError when the extractor cannot fill the schema.
func NewDetectionService(
	urlClassifier URLClassifier,
	emailClassifier EmailClassifier,
	extractor *features.Extractor,
	schema features.Schema,
	textProcessor *utils.TextProcessor,
	allowList AllowList,
	cache VerdictCache,
	logger *zap.Logger,
	opts ServiceOptions,
) (*DetectionService, error) {
	if err := schema.Check(extractor.Names()); err != nil {
		return nil, err
	}
	if opts.CacheEnabled && cache == nil {
		return nil, errors.New("cache enabled without a cache repository")
	}

	logger.Info("Detection service ready",
		zap.String("schema_version", schema.Version),
		zap.String("url_classifier", urlClassifier.Name()),
		zap.String("email_classifier", emailClassifier.Name()),
		zap.Bool("cache_enabled", opts.CacheEnabled))

	return &DetectionService{
		urlClassifier:   urlClassifier,
		emailClassifier: emailClassifier,
		extractor:       extractor,
		schema:          schema,
		textProcessor:   textProcessor,
		allowList:       allowList,
		cache:           cache,
		logger:          logger,
		opts:            opts,
	}, nil
}

// SchemaVersion returns the version of the feature schema in use
func (s *DetectionService) SchemaVersion() string {
	return s.schema.Version
}

// NormalizeURL strips trailing slashes so that "a.com" and "a.com/" share one feature vector
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}

// CheckURL classifies a URL as phishing or safe
func (s *DetectionService) CheckURL(ctx context.Context, rawURL string) (*URLAnalysisResult, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: no URL provided", ErrValidation)
	}

	url := NormalizeURL(rawURL)
	result := &URLAnalysisResult{
		URL:          url,
		AnalyzedAt:   time.Now(),
		ProcessingID: uuid.NewString(),
	}

	if s.isAllowListed(url) {
		s.logger.Debug("Skipping URL check for allow-listed host", zap.String("url", url))
		result.Source = SourceWhitelist
		result.ModelUsed = SourceWhitelist
		return result, nil
	}

	if s.opts.CacheEnabled {
		entry, err := s.cache.Get(ctx, url)
		switch {
		case err == nil:
			s.logger.Debug("Cache hit for URL", zap.String("url", url))
			result.IsPhishing = entry.IsPhishing
			result.Source = SourceCache
			result.ModelUsed = entry.ModelUsed
			return result, nil
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("Failed to read URL cache", zap.Error(err), zap.String("url", url))
		}
	}

	vec, err := s.extractor.Extract(url).Ordered(s.schema)
	if err != nil {
		s.logger.Error("Failed to build feature vector", zap.Error(err), zap.String("url", url))
		return nil, fmt.Errorf("failed to build feature vector: %w", err)
	}

	prediction, err := s.urlClassifier.ClassifyURL(ctx, url, vec)
	if err != nil {
		s.logger.Error("Failed to classify URL", zap.Error(err), zap.String("url", url))
		return nil, &ClassifierError{Classifier: s.urlClassifier.Name(), Err: err}
	}

	result.URLVerdict = DecideURL(prediction)
	result.Source = SourceModel
	result.ModelUsed = s.urlClassifier.Name()

	if s.opts.CacheEnabled {
		entry := &CacheEntry{
			URL:        url,
			IsPhishing: result.IsPhishing,
			ModelUsed:  result.ModelUsed,
			LastSeen:   result.AnalyzedAt,
			ExpiresAt:  result.AnalyzedAt.Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result, nil
}

// CheckEmail classifies raw email text as legitimate, suspicious or phishing
func (s *DetectionService) CheckEmail(ctx context.Context, text string) (*EmailAnalysisResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: no text provided", ErrValidation)
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinEmailLength {
		return ShortCircuitResult(), nil
	}

	result := &EmailAnalysisResult{
		AnalyzedAt:   time.Now(),
		ProcessingID: uuid.NewString(),
	}

	normalized := s.textProcessor.PrepareEmail(text, s.opts.MaxEmailSize)

	probs, err := s.emailClassifier.ClassifyEmail(ctx, normalized)
	if err != nil {
		s.logger.Error("Failed to classify email", zap.Error(err))
		return nil, &ClassifierError{Classifier: s.emailClassifier.Name(), Err: err}
	}

	result.Verdict = Decide(probs.Phishing, probs.Legitimate)
	result.Probabilities = &probs
	result.ModelUsed = s.emailClassifier.Name()

	return result, nil
}

// ShortCircuitResult is the verdict for input too degenerate to classify:
// Legitimate with zero confidence, without consulting a classifier.
func ShortCircuitResult() *EmailAnalysisResult {
	return &EmailAnalysisResult{
		Verdict:        Verdict{Label: LabelLegitimate, Confidence: 0},
		ShortCircuited: true,
		AnalyzedAt:     time.Now(),
		ModelUsed:      "none",
		ProcessingID:   uuid.NewString(),
	}
}

func (s *DetectionService) isAllowListed(url string) bool {
	if s.allowList == nil {
		return false
	}
	parts, err := features.SplitURL(url)
	if err != nil {
		return false
	}
	host, ok := parts.AllowListHost()
	return ok && s.allowList.IsAllowed(host)
}
