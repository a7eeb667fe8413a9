package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ContentGenerator is the part of a Gemini model used for classification
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient classifies URLs and emails with Google Gemini
type GeminiClient struct {
	client    *genai.Client
	model     ContentGenerator
	modelName string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	c := NewGeminiClientWithModel(model, modelName, timeout, logger)
	c.client = client
	return c, nil
}

// NewGeminiClientWithModel creates a Gemini client around an existing content generator
func NewGeminiClientWithModel(model ContentGenerator, modelName string, timeout time.Duration, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		model:     model,
		modelName: modelName,
		timeout:   timeout,
		logger:    logger,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Name returns the backend name
func (c *GeminiClient) Name() string {
	return "gemini:" + c.modelName
}

// ClassifyURL asks the model for a 0/1 prediction on a URL
func (c *GeminiClient) ClassifyURL(ctx context.Context, url string, vec features.OrderedVector) (int, error) {
	reply, err := c.generate(ctx, utils.BuildURLPrompt(url, vec))
	if err != nil {
		return 0, err
	}
	return utils.ParseURLPrediction(reply)
}

// ClassifyEmail asks the model for the phishing probability of normalized email text
func (c *GeminiClient) ClassifyEmail(ctx context.Context, text string) (core.EmailProbabilities, error) {
	reply, err := c.generate(ctx, utils.BuildEmailPrompt(text))
	if err != nil {
		return core.EmailProbabilities{}, err
	}
	p, err := utils.ParseEmailProbability(reply)
	if err != nil {
		return core.EmailProbabilities{}, err
	}
	return core.EmailProbabilities{Legitimate: 1 - p, Phishing: p}, nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	c.logger.Debug("Gemini response received", zap.String("model", c.modelName), zap.Int("length", sb.Len()))
	return sb.String(), nil
}
