package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is the default model for the OpenAI judge.
const OpenAIDefaultModel = "gpt-4o-mini"

// verdictMaxTokens bounds judge responses; a verdict is one letter.
const verdictMaxTokens = 8

// OpenAIJudge implements Judge against OpenAI's chat completion API.
type OpenAIJudge struct {
	client *openai.Client
	model  string
}

// Compile-time verification that OpenAIJudge implements Judge.
var _ Judge = (*OpenAIJudge)(nil)

// NewOpenAIJudge creates an OpenAI-backed judge.
func NewOpenAIJudge(cfg JudgeConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}

	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIJudge{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Complete implements Judge.
func (j *OpenAIJudge) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     j.model,
		MaxTokens: verdictMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", j.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model implements Judge.
func (j *OpenAIJudge) Model() string { return j.model }

// wrapError adds status context to OpenAI API failures.
func (j *OpenAIJudge) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai API error (%d): %w", apiErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("openai request failed: %w", err)
}
