package oracle

import (
	"context"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is the default model for the Google judge.
const GoogleDefaultModel = "gemini-2.0-flash-exp"

// GoogleJudge implements Judge against Google's Gemini API.
type GoogleJudge struct {
	client *genai.Client
	model  string
}

// Compile-time verification that GoogleJudge implements Judge.
var _ Judge = (*GoogleJudge)(nil)

// NewGoogleJudge creates a Gemini-backed judge. The context is used for
// client construction only.
func NewGoogleJudge(ctx context.Context, cfg JudgeConfig) (*GoogleJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key cannot be empty")
	}

	model := cfg.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &GoogleJudge{client: client, model: model}, nil
}

// Complete implements Judge.
func (j *GoogleJudge) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Models.GenerateContent(ctx, j.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{MaxOutputTokens: int32(verdictMaxTokens)},
	)
	if err != nil {
		return "", j.wrapError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", fmt.Errorf("empty response from Gemini API")
	}
	return content, nil
}

// Model implements Judge.
func (j *GoogleJudge) Model() string { return j.model }

// wrapError adds status context to Google API failures.
func (j *GoogleJudge) wrapError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return fmt.Errorf("gemini API error (%d): %s: %w", apiErr.Code, apiErr.Message, err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
