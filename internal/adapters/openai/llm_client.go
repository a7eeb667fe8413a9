package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatCompleter is the part of the OpenAI client used for classification
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient classifies URLs and emails with an OpenAI chat model
type OpenAIClient struct {
	client      ChatCompleter
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client ChatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		timeout:     timeout,
		logger:      logger,
	}
}

// Name returns the backend name
func (c *OpenAIClient) Name() string {
	return "openai:" + c.modelName
}

// ClassifyURL asks the model for a 0/1 prediction on a URL
func (c *OpenAIClient) ClassifyURL(ctx context.Context, url string, vec features.OrderedVector) (int, error) {
	reply, err := c.complete(ctx, utils.BuildURLPrompt(url, vec))
	if err != nil {
		return 0, err
	}
	return utils.ParseURLPrediction(reply)
}

// ClassifyEmail asks the model for the phishing probability of normalized email text
func (c *OpenAIClient) ClassifyEmail(ctx context.Context, text string) (core.EmailProbabilities, error) {
	reply, err := c.complete(ctx, utils.BuildEmailPrompt(text))
	if err != nil {
		return core.EmailProbabilities{}, err
	}
	p, err := utils.ParseEmailProbability(reply)
	if err != nil {
		return core.EmailProbabilities{}, err
	}
	return core.EmailProbabilities{Legitimate: 1 - p, Phishing: p}, nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI response received",
		zap.String("model", c.modelName),
		zap.String("response_id", resp.ID))

	return resp.Choices[0].Message.Content, nil
}
