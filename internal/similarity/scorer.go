// Package similarity provides text similarity scoring for near-duplicate
// detection of spoken notifications. Scoring is expressed as a pluggable
// Scorer strategy so the queue's deduplication policy can be tuned or swapped
// without touching queue logic.
package similarity

import (
	"strings"
	"unicode"
)

// Scorer computes a similarity score in [0, 1] between two normalized
// signatures. 0 means no overlap, 1 means effectively identical.
//
// Implementations must be safe for concurrent use; the queue calls Score
// while holding its lock.
type Scorer interface {
	Score(a, b Signature) (float64, error)
}

// Signature is the normalized representation of a message's content, computed
// once at message construction. It carries the token set used for overlap
// scoring and the joined normalized text used for character-level measures.
type Signature struct {
	Tokens []string
	Text   string
}

// Empty reports whether the signature carries no usable content.
func (s Signature) Empty() bool {
	return len(s.Tokens) == 0 && s.Text == ""
}

// stopwords are dropped during normalization. The set is deliberately small:
// only glue words that carry no signal for notification text.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "was": {}, "are": {},
	"has": {}, "have": {}, "been": {}, "to": {}, "of": {}, "in": {},
	"on": {}, "for": {}, "with": {}, "and": {}, "at": {},
}

// Normalize lowercases the input, strips punctuation, splits on whitespace,
// and drops stopwords. The resulting Signature is stable for any input,
// including empty or all-punctuation strings.
func Normalize(content string) Signature {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation is dropped entirely so "config.json" and
			// "configjson" normalize identically.
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}

	return Signature{
		Tokens: tokens,
		Text:   strings.Join(fields, " "),
	}
}

// TokenOverlapScorer is the default scoring strategy. It combines two
// measures and returns the larger:
//
//   - Jaccard overlap of the token sets, which catches reordered phrasings
//     ("File processing completed" vs "Processing file completed").
//   - Dice coefficient over character bigrams of the normalized text, which
//     catches small in-word edits that token comparison misses.
//
// Taking the max keeps each measure's false negatives from masking the
// other's true positives, while distinct payloads (different file names,
// different causes) still land well under the alert thresholds.
type TokenOverlapScorer struct{}

// Compile-time assertion that TokenOverlapScorer implements Scorer.
var _ Scorer = TokenOverlapScorer{}

// Score implements Scorer. It never returns an error; the interface carries
// one so alternate strategies with fallible backends can report failures.
func (TokenOverlapScorer) Score(a, b Signature) (float64, error) {
	if a.Empty() || b.Empty() {
		return 0, nil
	}

	token := jaccard(a.Tokens, b.Tokens)
	char := bigramDice(a.Text, b.Text)
	if char > token {
		return char, nil
	}
	return token, nil
}

// jaccard computes |intersection| / |union| over the token sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}

	intersection := 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			intersection++
		}
	}

	union := len(set) + len(seen) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// bigramDice computes the Dice coefficient over character bigram multisets.
func bigramDice(a, b string) float64 {
	if len(a) < 2 || len(b) < 2 {
		if a == b && a != "" {
			return 1
		}
		return 0
	}

	counts := make(map[string]int, len(a))
	for i := 0; i+2 <= len(a); i++ {
		counts[a[i:i+2]]++
	}

	common := 0
	for i := 0; i+2 <= len(b); i++ {
		bg := b[i : i+2]
		if counts[bg] > 0 {
			counts[bg]--
			common++
		}
	}

	total := (len(a) - 1) + (len(b) - 1)
	return 2 * float64(common) / float64(total)
}
