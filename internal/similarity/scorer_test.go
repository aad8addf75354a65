package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantTokens []string
		wantText   string
	}{
		{
			name:       "lowercases and strips punctuation",
			in:         "Build FAILED: exit code 1!",
			wantTokens: []string{"build", "failed", "exit", "code", "1"},
			wantText:   "build failed exit code 1",
		},
		{
			name:       "punctuation inside words collapses",
			in:         "reading config.json",
			wantTokens: []string{"reading", "configjson"},
			wantText:   "reading configjson",
		},
		{
			name:       "stopwords dropped from tokens",
			in:         "The file has been written to disk",
			wantTokens: []string{"file", "written", "disk"},
			wantText:   "the file has been written to disk",
		},
		{
			name:       "empty input",
			in:         "",
			wantTokens: []string{},
			wantText:   "",
		},
		{
			name:       "all punctuation",
			in:         "!!! ... ???",
			wantTokens: []string{},
			wantText:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Normalize(tt.in)
			assert.Equal(t, tt.wantTokens, sig.Tokens)
			assert.Equal(t, tt.wantText, sig.Text)
		})
	}
}

func TestSignatureEmpty(t *testing.T) {
	assert.True(t, Normalize("").Empty())
	assert.True(t, Normalize("...").Empty())
	assert.False(t, Normalize("hello").Empty())
}

func TestTokenOverlapScorer(t *testing.T) {
	scorer := TokenOverlapScorer{}

	score := func(a, b string) float64 {
		s, err := scorer.Score(Normalize(a), Normalize(b))
		require.NoError(t, err)
		return s
	}

	t.Run("identical content scores one", func(t *testing.T) {
		assert.InDelta(t, 1.0, score("File processing completed", "File processing completed"), 1e-9)
	})

	t.Run("reordered tokens score one", func(t *testing.T) {
		assert.InDelta(t, 1.0, score("File processing completed", "Processing file completed"), 1e-9)
	})

	t.Run("distinct errors stay under alert threshold", func(t *testing.T) {
		s := score("Error reading file config.json", "Error reading file settings.json")
		assert.Less(t, s, 0.85)
		assert.Greater(t, s, 0.5)
	})

	t.Run("unrelated content scores low", func(t *testing.T) {
		s := score("Compiled package alpha", "User input required immediately")
		assert.Less(t, s, 0.3)
	})

	t.Run("empty signatures score zero", func(t *testing.T) {
		assert.Zero(t, score("", "anything at all"))
		assert.Zero(t, score("", ""))
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "Deployment finished for service api", "Service api deployment finished"
		assert.InDelta(t, score(a, b), score(b, a), 1e-9)
	})
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
	assert.InDelta(t, 0.5, jaccard([]string{"a", "b", "c"}, []string{"a", "b", "d"}), 1e-9)
	assert.Zero(t, jaccard([]string{"a"}, []string{"b"}))
	assert.Zero(t, jaccard(nil, []string{"a"}))

	// Duplicate tokens must not inflate the intersection.
	assert.InDelta(t, 1.0/3.0, jaccard([]string{"a", "a", "b"}, []string{"a", "c"}), 1e-9)
}

func TestBigramDice(t *testing.T) {
	assert.InDelta(t, 1.0, bigramDice("abcd", "abcd"), 1e-9)
	assert.Zero(t, bigramDice("ab", "cd"))
	assert.Zero(t, bigramDice("", "ab"))
	assert.InDelta(t, 1.0, bigramDice("a", "a"), 1e-9)

	// One-character edit keeps most bigrams in common.
	assert.Greater(t, bigramDice("processing", "processinh"), 0.8)
}

func TestFuzzyScorer(t *testing.T) {
	scorer := FuzzyScorer{}

	score := func(a, b string) float64 {
		s, err := scorer.Score(Normalize(a), Normalize(b))
		require.NoError(t, err)
		return s
	}

	t.Run("identical content scores one", func(t *testing.T) {
		assert.InDelta(t, 1.0, score("task completed", "task completed"), 1e-9)
	})

	t.Run("subset scores by coverage of longer side", func(t *testing.T) {
		s := score("task done", "task done with extra details")
		assert.Greater(t, s, 0.0)
		assert.Less(t, s, 0.5)
	})

	t.Run("no subsequence match scores zero", func(t *testing.T) {
		assert.Zero(t, score("zzz qqq", "task completed"))
	})

	t.Run("empty signatures score zero", func(t *testing.T) {
		assert.Zero(t, score("", "task completed"))
	})
}
