package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/utils"
	"github.com/mikey/phish-guard/internal/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingURLClassifier predicts phishing for any URL containing an IP and remembers its inputs
type recordingURLClassifier struct {
	mu      sync.Mutex
	vectors []features.OrderedVector
	err     error
}

func (c *recordingURLClassifier) ClassifyURL(_ context.Context, _ string, vec features.OrderedVector) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = append(c.vectors, vec)
	if c.err != nil {
		return 0, c.err
	}
	for i, name := range vec.Names {
		if name == features.HasIP && vec.Values[i] == 1 {
			return 1, nil
		}
	}
	return 0, nil
}

func (c *recordingURLClassifier) Name() string { return "recording-url" }

type fixedEmailClassifier struct {
	probs  EmailProbabilities
	err    error
	calls  int
	inputs []string
}

func (c *fixedEmailClassifier) ClassifyEmail(_ context.Context, text string) (EmailProbabilities, error) {
	c.calls++
	c.inputs = append(c.inputs, text)
	return c.probs, c.err
}

func (c *fixedEmailClassifier) Name() string { return "fixed-email" }

type mapCache struct {
	entries map[string]*CacheEntry
	setErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

func (c *mapCache) Get(_ context.Context, url string) (*CacheEntry, error) {
	if entry, ok := c.entries[url]; ok {
		return entry, nil
	}
	return nil, ErrCacheMiss
}

func (c *mapCache) Set(_ context.Context, entry *CacheEntry) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[entry.URL] = entry
	return nil
}

func (c *mapCache) Delete(_ context.Context, url string) error {
	delete(c.entries, url)
	return nil
}

func (c *mapCache) Cleanup(context.Context) error { return nil }

func newTestService(t *testing.T, urlClf URLClassifier, emailClf EmailClassifier, cache VerdictCache, opts ServiceOptions, allowed ...string) *DetectionService {
	t.Helper()
	logger := zap.NewNop()
	svc, err := NewDetectionService(
		urlClf,
		emailClf,
		features.NewExtractor(),
		features.DefaultSchema(),
		utils.NewTextProcessor(logger),
		whitelist.NewChecker(allowed, logger),
		cache,
		logger,
		opts,
	)
	require.NoError(t, err)
	return svc
}

func TestNewDetectionService_SchemaMismatch(t *testing.T) {
	logger := zap.NewNop()
	_, err := NewDetectionService(
		&recordingURLClassifier{},
		&fixedEmailClassifier{},
		features.NewExtractor(),
		features.Schema{Version: "bad", Names: []string{"url_length", "tld_rank"}},
		utils.NewTextProcessor(logger),
		nil,
		nil,
		logger,
		ServiceOptions{},
	)

	var mismatch *features.SchemaMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestNewDetectionService_CacheEnabledWithoutRepository(t *testing.T) {
	logger := zap.NewNop()
	_, err := NewDetectionService(
		&recordingURLClassifier{},
		&fixedEmailClassifier{},
		features.NewExtractor(),
		features.DefaultSchema(),
		utils.NewTextProcessor(logger),
		nil,
		nil,
		logger,
		ServiceOptions{CacheEnabled: true},
	)
	assert.Error(t, err)
}

func TestCheckURL_Validation(t *testing.T) {
	svc := newTestService(t, &recordingURLClassifier{}, &fixedEmailClassifier{}, nil, ServiceOptions{})

	_, err := svc.CheckURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckURL_PassesThroughPrediction(t *testing.T) {
	clf := &recordingURLClassifier{}
	svc := newTestService(t, clf, &fixedEmailClassifier{}, nil, ServiceOptions{})

	result, err := svc.CheckURL(context.Background(), "http://192.168.1.1/x")
	require.NoError(t, err)
	assert.True(t, result.IsPhishing)
	assert.Equal(t, SourceModel, result.Source)
	assert.Equal(t, "recording-url", result.ModelUsed)
	assert.NotEmpty(t, result.ProcessingID)

	result, err = svc.CheckURL(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.False(t, result.IsPhishing)
}

func TestCheckURL_TrailingSlashEquivalence(t *testing.T) {
	clf := &recordingURLClassifier{}
	svc := newTestService(t, clf, &fixedEmailClassifier{}, nil, ServiceOptions{})

	urls := []string{"https://ibommamovie.com", "https://ibommamovie.com/", "https://ibommamovie.com///"}
	for _, u := range urls {
		result, err := svc.CheckURL(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, "https://ibommamovie.com", result.URL)
	}

	require.Len(t, clf.vectors, 3)
	assert.Equal(t, clf.vectors[0], clf.vectors[1])
	assert.Equal(t, clf.vectors[0], clf.vectors[2])
}

func TestCheckURL_OnlySlashesStillClassified(t *testing.T) {
	clf := &recordingURLClassifier{}
	svc := newTestService(t, clf, &fixedEmailClassifier{}, nil, ServiceOptions{})

	result, err := svc.CheckURL(context.Background(), "///")
	require.NoError(t, err)
	assert.Equal(t, "", result.URL)
	assert.Len(t, clf.vectors, 1)
}

func TestCheckURL_ClassifierFailure(t *testing.T) {
	cause := errors.New("model server unavailable")
	svc := newTestService(t, &recordingURLClassifier{err: cause}, &fixedEmailClassifier{}, nil, ServiceOptions{})

	result, err := svc.CheckURL(context.Background(), "https://example.com")
	assert.Nil(t, result)

	var clfErr *ClassifierError
	require.ErrorAs(t, err, &clfErr)
	assert.Equal(t, "recording-url", clfErr.Classifier)
	assert.ErrorIs(t, err, cause)
}

func TestCheckURL_Whitelist(t *testing.T) {
	clf := &recordingURLClassifier{}
	svc := newTestService(t, clf, &fixedEmailClassifier{}, nil, ServiceOptions{}, "github.com")

	result, err := svc.CheckURL(context.Background(), "https://gist.github.com/192.168.1.1/")
	require.NoError(t, err)
	assert.False(t, result.IsPhishing)
	assert.Equal(t, SourceWhitelist, result.Source)
	assert.Empty(t, clf.vectors)
}

func TestCheckURL_AmbiguousHostIsClassified(t *testing.T) {
	urls := []string{
		`https://192.168.1.1\@google.com/login`,
		`https://google.com\.evil.example/`,
		"https://goo%67le.com/login",
		"ftp://google.com/file",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			clf := &recordingURLClassifier{}
			svc := newTestService(t, clf, &fixedEmailClassifier{}, nil, ServiceOptions{}, "google.com")

			result, err := svc.CheckURL(context.Background(), u)
			require.NoError(t, err)
			assert.Equal(t, SourceModel, result.Source)
			assert.Len(t, clf.vectors, 1)
		})
	}

	clf := &recordingURLClassifier{}
	svc := newTestService(t, clf, &fixedEmailClassifier{}, nil, ServiceOptions{}, "google.com")
	result, err := svc.CheckURL(context.Background(), `https://192.168.1.1\@google.com/login`)
	require.NoError(t, err)
	assert.True(t, result.IsPhishing)
}

func TestCheckEmail_ShortCircuitSkipsAllocation(t *testing.T) {
	svc := newTestService(t, &recordingURLClassifier{}, &fixedEmailClassifier{}, nil, ServiceOptions{})

	allocs := testing.AllocsPerRun(10, func() {
		_, _ = svc.CheckEmail(context.Background(), "hi")
	})
	baseline := testing.AllocsPerRun(10, func() {
		_ = ShortCircuitResult()
	})
	assert.LessOrEqual(t, allocs, baseline)
}

func TestCheckURL_Cache(t *testing.T) {
	clf := &recordingURLClassifier{}
	cache := newMapCache()
	svc := newTestService(t, clf, &fixedEmailClassifier{}, cache, ServiceOptions{CacheEnabled: true, CacheTTL: time.Hour})

	first, err := svc.CheckURL(context.Background(), "http://10.0.0.1/login/")
	require.NoError(t, err)
	assert.Equal(t, SourceModel, first.Source)

	entry, ok := cache.entries["http://10.0.0.1/login"]
	require.True(t, ok)
	assert.True(t, entry.IsPhishing)
	assert.WithinDuration(t, first.AnalyzedAt.Add(time.Hour), entry.ExpiresAt, time.Second)

	second, err := svc.CheckURL(context.Background(), "http://10.0.0.1/login")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.True(t, second.IsPhishing)
	assert.Len(t, clf.vectors, 1)
}

func TestCheckURL_CacheWriteFailureIsNotSurfaced(t *testing.T) {
	cache := newMapCache()
	cache.setErr = errors.New("disk full")
	svc := newTestService(t, &recordingURLClassifier{}, &fixedEmailClassifier{}, cache, ServiceOptions{CacheEnabled: true, CacheTTL: time.Minute})

	result, err := svc.CheckURL(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.False(t, result.IsPhishing)
}

func TestCheckEmail_Validation(t *testing.T) {
	svc := newTestService(t, &recordingURLClassifier{}, &fixedEmailClassifier{}, nil, ServiceOptions{})

	_, err := svc.CheckEmail(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckEmail_ShortTextSkipsClassifier(t *testing.T) {
	clf := &fixedEmailClassifier{probs: EmailProbabilities{Legitimate: 0.01, Phishing: 0.99}}
	svc := newTestService(t, &recordingURLClassifier{}, clf, nil, ServiceOptions{})

	for _, text := range []string{"hello", "   padded   ", "123456789"} {
		result, err := svc.CheckEmail(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, Verdict{Label: LabelLegitimate, Confidence: 0}, result.Verdict)
		assert.True(t, result.ShortCircuited)
	}
	assert.Equal(t, 0, clf.calls)
}

func TestCheckEmail_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		probs    EmailProbabilities
		expected Verdict
	}{
		{"phishing", EmailProbabilities{Legitimate: 0.10, Phishing: 0.90}, Verdict{LabelPhishing, 0.90}},
		{"suspicious", EmailProbabilities{Legitimate: 0.40, Phishing: 0.60}, Verdict{LabelSuspicious, 0.60}},
		{"legitimate", EmailProbabilities{Legitimate: 0.90, Phishing: 0.10}, Verdict{LabelLegitimate, 0.90}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := &fixedEmailClassifier{probs: tt.probs}
			svc := newTestService(t, &recordingURLClassifier{}, clf, nil, ServiceOptions{MaxEmailSize: 4096})

			result, err := svc.CheckEmail(context.Background(), "Visit http://evil.com NOW!! call 123")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Verdict)
			assert.Equal(t, "fixed-email", result.ModelUsed)
			require.NotNil(t, result.Probabilities)
			assert.Equal(t, tt.probs, *result.Probabilities)
			assert.Equal(t, []string{"visit now call"}, clf.inputs)
		})
	}
}

func TestCheckEmail_ClassifierFailure(t *testing.T) {
	clf := &fixedEmailClassifier{err: context.DeadlineExceeded}
	svc := newTestService(t, &recordingURLClassifier{}, clf, nil, ServiceOptions{})

	result, err := svc.CheckEmail(context.Background(), "Your account has been suspended, verify now")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
