package similarity

import (
	"fmt"

	"github.com/sahilm/fuzzy"
)

// FuzzyScorer is an alternate scoring strategy backed by sahilm/fuzzy
// subsequence matching. It treats the shorter normalized text as the pattern
// and scores by the fraction of the longer text covered by the match.
//
// It is coarser than TokenOverlapScorer for reordered phrasings (subsequence
// matching is order-sensitive) but cheaper for long inputs, and serves as the
// reference second implementation proving the Scorer seam.
type FuzzyScorer struct{}

var _ Scorer = FuzzyScorer{}

// Score implements Scorer.
func (FuzzyScorer) Score(a, b Signature) (score float64, err error) {
	// fuzzy.Find indexes into its inputs; guard against any pathological
	// input by converting a panic into an error so the caller can fail open.
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = fmt.Errorf("fuzzy match panic: %v", r)
		}
	}()

	if a.Empty() || b.Empty() {
		return 0, nil
	}

	pattern, target := a.Text, b.Text
	if len(pattern) > len(target) {
		pattern, target = target, pattern
	}

	matches := fuzzy.Find(pattern, []string{target})
	if len(matches) == 0 {
		return 0, nil
	}

	// A successful subsequence match covers every pattern byte; normalize by
	// the longer side so "abc" inside a long string is not a near-duplicate.
	return float64(len(matches[0].MatchedIndexes)) / float64(len(target)), nil
}
