package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/stats"
)

// Judge is the minimal completion interface an LLM provider must expose.
// Provider adapters (OpenAI, Anthropic, Google) implement it; LLMOracle
// handles everything model-agnostic: prompting, position swapping, and
// verdict parsing.
type Judge interface {
	// Complete sends a prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier, for logging and errors.
	Model() string
}

// JudgeConfig holds common provider settings.
type JudgeConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model overrides the provider's default model when non-empty.
	Model string

	// Timeout bounds individual requests; zero means no timeout.
	Timeout time.Duration
}

// comparisonPrompt frames one head-to-head judgment. The judge must answer
// with a single letter so the verdict parses unambiguously.
const comparisonPrompt = `You are judging a head-to-head comparison between two candidate responses.
Decide which response is stronger overall.

Response A:
%s

Response B:
%s

Reply with exactly one letter: A or B.`

// LLMOracle judges comparisons through an LLM. Presentation order is
// swapped pseudo-randomly per comparison to counter positional bias, with
// the swap sequence derived from a seed so runs stay reproducible.
type LLMOracle struct {
	judge Judge
	rng   *stats.RNG
}

// NewLLMOracle creates an oracle over the given judge. The seed drives the
// position-swap sequence only.
func NewLLMOracle(judge Judge, seed uint64) *LLMOracle {
	return &LLMOracle{judge: judge, rng: stats.NewRNG(seed)}
}

// Compare implements Oracle.
func (o *LLMOracle) Compare(ctx context.Context, a, b domain.Item) (domain.Item, error) {
	first, second := a, b
	swapped := o.rng.Uint64()&1 == 1
	if swapped {
		first, second = b, a
	}

	response, err := o.judge.Complete(ctx, fmt.Sprintf(comparisonPrompt, first.Content, second.Content))
	if err != nil {
		return domain.Item{}, fmt.Errorf("judge %s: %w", o.judge.Model(), err)
	}

	pickedFirst, err := parseVerdict(response)
	if err != nil {
		return domain.Item{}, fmt.Errorf("judge %s: %w", o.judge.Model(), err)
	}

	if pickedFirst {
		return first, nil
	}
	return second, nil
}

// parseVerdict extracts the A/B choice from a judge response. The prompt
// demands a bare letter, but models editorialize; scan for the first
// standalone A or B token. A word that merely starts with the letter
// ("Both", "Arguably") is not a verdict.
func parseVerdict(response string) (pickedFirst bool, err error) {
	trimmed := strings.ToUpper(strings.TrimSpace(response))
	if trimmed == "" {
		return false, fmt.Errorf("empty verdict")
	}

	for _, field := range strings.Fields(trimmed) {
		token := strings.Trim(field, ".,:;!?()\"'")
		if token == "A" {
			return true, nil
		}
		if token == "B" {
			return false, nil
		}
	}

	return false, fmt.Errorf("unparseable verdict %q", response)
}
