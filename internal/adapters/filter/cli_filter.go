package filter

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CLIFilter implements a command-line interface for phishing detection
type CLIFilter struct {
	detector ports.Detector
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewCLIFilter creates a new CLI filter writing its report to stdout
func NewCLIFilter(detector ports.Detector, logger *zap.Logger, verbose bool) *CLIFilter {
	return &CLIFilter{
		detector: detector,
		logger:   logger,
		out:      os.Stdout,
		verbose:  verbose,
	}
}

// CheckURLs classifies urls with at most concurrency checks in flight and
// prints the verdicts in input order
func (f *CLIFilter) CheckURLs(ctx context.Context, urls []string, concurrency int) ([]*core.URLAnalysisResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*core.URLAnalysisResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			result, err := f.detector.CheckURL(gctx, url)
			if err != nil {
				return fmt.Errorf("checking %q: %w", url, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.logger.Error("URL check failed", zap.Error(err))
		return nil, err
	}

	fmt.Fprintf(f.out, "=== URL Results ===\n")
	for _, result := range results {
		verdict := "safe"
		if result.IsPhishing {
			verdict = "PHISHING"
		}
		fmt.Fprintf(f.out, "%-8s %s (source: %s, model: %s)\n", verdict, result.URL, result.Source, result.ModelUsed)
	}

	return results, nil
}

// CheckMessage parses an RFC 5322 message and classifies its text
func (f *CLIFilter) CheckMessage(ctx context.Context, r io.Reader) (*core.EmailAnalysisResult, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	subject, err := decodeEncodedHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}
	body, err := extractTextFromMessage(msg)
	if err != nil {
		f.logger.Warn("Failed to extract text content", zap.Error(err))
	}

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", msg.Header.Get("From"))
	fmt.Fprintf(f.out, "To: %s\n", msg.Header.Get("To"))
	fmt.Fprintf(f.out, "Subject: %s\n", subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(body))

	if f.verbose {
		preview := body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	return f.CheckText(ctx, strings.TrimSpace(subject+"\n"+body))
}

// CheckText classifies raw email text and prints the verdict
func (f *CLIFilter) CheckText(ctx context.Context, text string) (*core.EmailAnalysisResult, error) {
	start := time.Now()
	var result *core.EmailAnalysisResult
	if strings.TrimSpace(text) == "" {
		result = core.ShortCircuitResult()
	} else {
		var err error
		result, err = f.detector.CheckEmail(ctx, text)
		if err != nil {
			f.logger.Error("Failed to analyze email", zap.Error(err))
			return nil, err
		}
	}
	duration := time.Since(start)

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Label: %s\n", result.Label)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", result.Confidence)
	if result.Probabilities != nil {
		fmt.Fprintf(f.out, "Phishing probability: %.4f\n", result.Probabilities.Phishing)
	}
	fmt.Fprintf(f.out, "Model used: %s\n", result.ModelUsed)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CLIFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CLIFilter) Stop() error {
	return nil
}
