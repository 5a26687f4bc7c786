package classify

import (
	"strings"
	"testing"

	"github.com/CTAG07/markovlang/pkg/corpus"
)

// sentencesOf tokenizes text into character sentences.
func sentencesOf(t *testing.T, text string) [][]string {
	t.Helper()
	tok := corpus.NewTokenizer(corpus.WithCharacters())
	var sentences [][]string
	for _, s := range strings.Split(text, "\n") {
		if symbols := tok.Symbols(s); symbols != nil {
			sentences = append(sentences, symbols)
		}
	}
	return sentences
}

const (
	abText = "abab abba\nbaab abab\naabb baba\nabab baab\nbbaa abab"
	xyText = "xyxy yxxy\nxyyx xyxy\nyyxx xxyy\nxyxy yxyx\nyxyx xxyx"
)

// setupTrained returns a classifier trained on two clearly separated labels.
func setupTrained(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	c := New(opts...)
	err := c.Train(t.Context(), []Dataset{
		{Label: "ab", Sentences: sentencesOf(t, abText)},
		{Label: "xy", Sentences: sentencesOf(t, xyText)},
	})
	if err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return c
}
