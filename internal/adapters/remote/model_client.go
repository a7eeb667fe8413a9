package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"go.uber.org/zap"
)

// maxResponseSize bounds how much of a model server reply is read
const maxResponseSize = 1 << 20

// URLRequest is the body sent to {base}/v1/url
type URLRequest struct {
	URL           string    `json:"url"`
	SchemaVersion string    `json:"schema_version,omitempty"`
	Features      []string  `json:"features"`
	Values        []float64 `json:"values"`
}

// URLResponse is the body returned by {base}/v1/url
type URLResponse struct {
	Prediction *int `json:"prediction"`
}

// EmailRequest is the body sent to {base}/v1/email
type EmailRequest struct {
	Text string `json:"text"`
}

// EmailResponse is the body returned by {base}/v1/email. Probabilities are
// ordered [legitimate, phishing].
type EmailResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// ModelClient calls an HTTP model server that hosts the trained URL and email models
type ModelClient struct {
	baseURL       string
	schemaVersion string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewModelClient creates a new model server client
func NewModelClient(baseURL, schemaVersion string, timeout time.Duration, logger *zap.Logger) *ModelClient {
	return &ModelClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		schemaVersion: schemaVersion,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// Name returns the backend name
func (c *ModelClient) Name() string {
	return "remote:" + c.baseURL
}

// ClassifyURL posts the ordered feature vector and returns the predicted class
func (c *ModelClient) ClassifyURL(ctx context.Context, url string, vec features.OrderedVector) (int, error) {
	var resp URLResponse
	err := c.post(ctx, "/v1/url", URLRequest{
		URL:           url,
		SchemaVersion: c.schemaVersion,
		Features:      vec.Names,
		Values:        vec.Values,
	}, &resp)
	if err != nil {
		return 0, err
	}

	if resp.Prediction == nil {
		return 0, fmt.Errorf("model server response has no prediction")
	}
	if *resp.Prediction != 0 && *resp.Prediction != 1 {
		return 0, fmt.Errorf("model server prediction out of range: %d", *resp.Prediction)
	}
	return *resp.Prediction, nil
}

// ClassifyEmail posts normalized text and returns the two-class distribution
func (c *ModelClient) ClassifyEmail(ctx context.Context, text string) (core.EmailProbabilities, error) {
	var resp EmailResponse
	if err := c.post(ctx, "/v1/email", EmailRequest{Text: text}, &resp); err != nil {
		return core.EmailProbabilities{}, err
	}

	if len(resp.Probabilities) != 2 {
		return core.EmailProbabilities{}, fmt.Errorf("model server returned %d probabilities, expected 2", len(resp.Probabilities))
	}
	for _, p := range resp.Probabilities {
		if !(p >= 0 && p <= 1) {
			return core.EmailProbabilities{}, fmt.Errorf("model server probability out of range: %v", p)
		}
	}
	return core.EmailProbabilities{
		Legitimate: resp.Probabilities[0],
		Phishing:   resp.Probabilities[1],
	}, nil
}

func (c *ModelClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call model server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read model server response: %w", err)
	}

	c.logger.Debug("Model server responded",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode model server response: %w", err)
	}
	return nil
}
