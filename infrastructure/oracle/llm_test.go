package oracle

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-duel/internal/domain"
)

// scriptedJudge returns canned responses and records received prompts.
type scriptedJudge struct {
	response string
	err      error
	prompts  []string
}

func (j *scriptedJudge) Complete(_ context.Context, prompt string) (string, error) {
	j.prompts = append(j.prompts, prompt)
	if j.err != nil {
		return "", j.err
	}
	return j.response, nil
}

func (j *scriptedJudge) Model() string { return "scripted-judge" }

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		pickedFirst bool
		wantErr     bool
	}{
		{name: "bare A", response: "A", pickedFirst: true},
		{name: "bare B", response: "B", pickedFirst: false},
		{name: "lowercase", response: "a", pickedFirst: true},
		{name: "surrounding whitespace", response: "  B\n", pickedFirst: false},
		{name: "verdict with trailing prose", response: "A is clearly stronger", pickedFirst: true},
		{name: "editorialized verdict", response: "I would say the answer is B.", pickedFirst: false},
		{name: "empty response", response: "", wantErr: true},
		{name: "no verdict at all", response: "both are excellent", wantErr: true},
		{name: "word starting with A is not a verdict", response: "Arguably neither stands out", wantErr: true},
		{name: "word starting with B is not a verdict", response: "Brilliant work in each case", wantErr: true},
		{name: "parenthesized verdict", response: "(B)", pickedFirst: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pickedFirst, got)
		})
	}
}

func TestLLMOracle_Compare(t *testing.T) {
	a := domain.Item{ID: "a", Content: "first candidate"}
	b := domain.Item{ID: "b", Content: "second candidate"}

	judge := &scriptedJudge{response: "A"}
	o := NewLLMOracle(judge, 42)

	winner, err := o.Compare(context.Background(), a, b)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, winner.ID)

	// The prompt contains both contents, in some order.
	require.Len(t, judge.prompts, 1)
	assert.Contains(t, judge.prompts[0], a.Content)
	assert.Contains(t, judge.prompts[0], b.Content)
}

// TestLLMOracle_PositionSwapDeterministic verifies that the seeded swap
// sequence replays identically, and that flipping the verdict letter flips
// the chosen item.
func TestLLMOracle_PositionSwapDeterministic(t *testing.T) {
	a := domain.Item{ID: "a", Content: "first"}
	b := domain.Item{ID: "b", Content: "second"}
	ctx := context.Background()

	pickA := NewLLMOracle(&scriptedJudge{response: "A"}, 7)
	replay := NewLLMOracle(&scriptedJudge{response: "A"}, 7)
	pickB := NewLLMOracle(&scriptedJudge{response: "B"}, 7)

	for round := 0; round < 10; round++ {
		first, err := pickA.Compare(ctx, a, b)
		require.NoError(t, err)

		same, err := replay.Compare(ctx, a, b)
		require.NoError(t, err)
		assert.Equal(t, first.ID, same.ID, "same seed must replay the same presentation order")

		other, err := pickB.Compare(ctx, a, b)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, other.ID, "opposite verdict must pick the opposite item")
	}
}

func TestLLMOracle_SwapsPositions(t *testing.T) {
	a := domain.Item{ID: "a", Content: "alpha-content"}
	b := domain.Item{ID: "b", Content: "beta-content"}

	judge := &scriptedJudge{response: "A"}
	o := NewLLMOracle(judge, 3)

	// Over enough rounds both presentation orders must occur.
	for i := 0; i < 32; i++ {
		_, err := o.Compare(context.Background(), a, b)
		require.NoError(t, err)
	}

	aFirst, bFirst := false, false
	for _, p := range judge.prompts {
		if strings.Index(p, "alpha-content") < strings.Index(p, "beta-content") {
			aFirst = true
		} else {
			bFirst = true
		}
	}
	assert.True(t, aFirst, "item a should lead in some rounds")
	assert.True(t, bFirst, "item b should lead in some rounds")
}

func TestLLMOracle_JudgeErrors(t *testing.T) {
	a := domain.Item{ID: "a"}
	b := domain.Item{ID: "b"}

	failing := NewLLMOracle(&scriptedJudge{err: fmt.Errorf("quota exceeded")}, 1)
	_, err := failing.Compare(context.Background(), a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripted-judge")

	garbled := NewLLMOracle(&scriptedJudge{response: "neither, honestly"}, 1)
	_, err = garbled.Compare(context.Background(), a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable verdict")
}
