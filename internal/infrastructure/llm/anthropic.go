package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/validation"
)

// AnthropicConfig selects the model used for classification.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the API host; empty uses the SDK default.
	BaseURL string
}

// AnthropicClassifier classifies articles through the Anthropic Messages API.
type AnthropicClassifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

var _ validation.Classifier = (*AnthropicClassifier)(nil)

// NewAnthropicClassifier builds a classifier from configuration.
func NewAnthropicClassifier(cfg AnthropicConfig) (*AnthropicClassifier, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("anthropic classifier misconfigured: model and api key are required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL), option.WithMaxRetries(0))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClassifier{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// Classify sends the article to the model and parses the JSON answer.
func (a *AnthropicClassifier) Classify(ctx context.Context, in validation.ClassificationInput) (domain.Classification, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(in))),
		},
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: anthropic: %v", domain.ErrClassification, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return ParseClassification(text.String())
}
