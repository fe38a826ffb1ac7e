package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is the default model for the Anthropic judge.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

// AnthropicJudge implements Judge against Anthropic's Messages API.
type AnthropicJudge struct {
	client anthropic.Client
	model  string
}

// Compile-time verification that AnthropicJudge implements Judge.
var _ Judge = (*AnthropicJudge)(nil)

// NewAnthropicJudge creates an Anthropic-backed judge.
func NewAnthropicJudge(cfg JudgeConfig) (*AnthropicJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key cannot be empty")
	}

	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &AnthropicJudge{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete implements Judge.
func (j *AnthropicJudge) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: int64(verdictMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", j.wrapError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Anthropic API")
	}
	return text.String(), nil
}

// Model implements Judge.
func (j *AnthropicJudge) Model() string { return j.model }

// wrapError adds status context to Anthropic API failures.
func (j *AnthropicJudge) wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic API error (%d): %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("anthropic request failed: %w", err)
}
