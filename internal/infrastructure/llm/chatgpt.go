package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/httpjson"
	"NewsHarvester/internal/validation"
)

// ChatGPTConfig defines how to reach an OpenAI-compatible chat completions endpoint.
type ChatGPTConfig struct {
	Endpoint          string
	Model             string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// ChatGPTClassifier classifies articles through OpenAI-compatible APIs.
type ChatGPTClassifier struct {
	api   *httpjson.Client
	model string
}

var _ validation.Classifier = (*ChatGPTClassifier)(nil)

// NewChatGPTClassifier builds a classifier from configuration.
func NewChatGPTClassifier(cfg ChatGPTConfig) (*ChatGPTClassifier, error) {
	if cfg.APIKey == "" || cfg.Endpoint == "" || cfg.Model == "" {
		return nil, fmt.Errorf("chatgpt classifier misconfigured: endpoint, model and api key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatGPTClassifier{
		api: httpjson.NewClient(cfg.Endpoint, httpjson.Options{
			APIKey:            cfg.APIKey,
			Timeout:           timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		model: cfg.Model,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify sends the article as a user message and parses the JSON answer.
func (c *ChatGPTClassifier) Classify(ctx context.Context, in validation.ClassificationInput) (domain.Classification, error) {
	var resp chatResponse
	err := c.api.Post(ctx, "", chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(in)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}, &resp)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: chatgpt: %v", domain.ErrClassification, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return domain.Classification{}, fmt.Errorf("%w: chatgpt returned no choices", domain.ErrClassification)
	}

	return ParseClassification(resp.Choices[0].Message.Content)
}
