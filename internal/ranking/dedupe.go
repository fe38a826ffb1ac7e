package ranking

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-duel/internal/domain"
)

// DuplicateSimilarityThreshold is the normalized similarity above which two
// items are flagged as likely duplicates. Near-duplicates waste comparison
// rounds: the model cannot separate items judges cannot tell apart.
const DuplicateSimilarityThreshold = 0.9

// foldCaser performs Unicode case folding for case-insensitive comparison.
var foldCaser = cases.Fold()

// DuplicateWarning flags a pair of items whose contents are nearly
// identical after normalization.
type DuplicateWarning struct {
	// A and B are the near-duplicate items.
	A domain.Item `json:"a"`
	B domain.Item `json:"b"`

	// Similarity is the normalized Levenshtein similarity in [0, 1].
	Similarity float64 `json:"similarity"`
}

// FindNearDuplicates scans every item pair and reports those whose
// normalized contents exceed the similarity threshold. O(n^2) pairs with
// O(len^2) distance each; item lists here are small by construction.
func FindNearDuplicates(items []domain.Item, threshold float64) []DuplicateWarning {
	normalized := make([]string, len(items))
	for i, item := range items {
		normalized[i] = normalizeContent(item.Content)
	}

	var warnings []DuplicateWarning
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sim := similarity(normalized[i], normalized[j])
			if sim >= threshold {
				warnings = append(warnings, DuplicateWarning{
					A:          items[i],
					B:          items[j],
					Similarity: sim,
				})
			}
		}
	}
	return warnings
}

// normalizeContent case-folds and collapses whitespace so trivial
// formatting differences do not mask duplicates.
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(foldCaser.String(s)), " ")
}

// similarity converts Levenshtein distance to a similarity in [0, 1],
// where 1 means identical after normalization.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
