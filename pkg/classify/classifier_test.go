package classify

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/CTAG07/markovlang/pkg/corpus"
	"github.com/CTAG07/markovlang/pkg/markov"
)

func TestTrainBuildsFamilies(t *testing.T) {
	c := setupTrained(t, WithOrder(4))

	if got := c.Labels(); !reflect.DeepEqual(got, []string{"ab", "xy"}) {
		t.Errorf("Labels() = %v", got)
	}
	f, ok := c.Family("ab")
	if !ok {
		t.Fatal("family 'ab' missing")
	}
	if f.Primary.Order() != 4 {
		t.Errorf("primary order = %d, want 4", f.Primary.Order())
	}
	var orders []int
	for _, m := range f.Chain {
		orders = append(orders, m.Order())
	}
	if !reflect.DeepEqual(orders, []int{3, 2}) {
		t.Errorf("chain orders = %v, want [3 2]", orders)
	}
	if f.Primary.Stats().Contexts == 0 {
		t.Error("primary model was not fitted")
	}
}

func TestTrainBigramHasNoChain(t *testing.T) {
	c := setupTrained(t, WithOrder(2))
	f, _ := c.Family("xy")
	if len(f.Chain) != 0 {
		t.Errorf("expected an empty chain for order 2, got %d models", len(f.Chain))
	}
}

func TestTrainErrors(t *testing.T) {
	c := New()
	if err := c.Train(t.Context(), nil); !errors.Is(err, ErrNoLabels) {
		t.Errorf("Train(nil) error = %v, want ErrNoLabels", err)
	}
	err := c.Train(t.Context(), []Dataset{{Label: "a"}, {Label: "a"}})
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Errorf("Train() with a duplicate label error = %v, want ErrDuplicateLabel", err)
	}
	if len(c.Labels()) != 0 {
		t.Error("a failed Train() added labels")
	}
}

func TestClassify(t *testing.T) {
	c := setupTrained(t)
	tok := corpus.NewTokenizer(corpus.WithCharacters())

	testCases := []struct {
		sentence string
		want     string
	}{
		{"abba baba", "ab"},
		{"yxxy xyyx", "xy"},
	}
	for _, tc := range testCases {
		t.Run(tc.sentence, func(t *testing.T) {
			got, scores, err := c.Classify(tok.Symbols(tc.sentence))
			if err != nil {
				t.Fatalf("Classify() failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s (scores %+v)", tc.sentence, got, tc.want, scores)
			}
			if len(scores) != 2 || scores[0].Label != "ab" || scores[1].Label != "xy" {
				t.Errorf("scores not in label order: %+v", scores)
			}
		})
	}
}

func TestClassifyTieKeepsFirstLabel(t *testing.T) {
	c := New(WithOrder(2))
	_ = c.Train(t.Context(), []Dataset{
		{Label: "first", Sentences: [][]string{{"a", "b"}}},
		{Label: "second", Sentences: [][]string{{"a", "b"}}},
	})

	got, scores, err := c.Classify([]string{"q", "r", "s"})
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	if scores[0].Probability != scores[1].Probability {
		t.Fatalf("expected a tie, got %+v", scores)
	}
	if got != "first" {
		t.Errorf("tie resolved to %s, want first", got)
	}
}

func TestClassifyWithoutLabels(t *testing.T) {
	if _, _, err := New().Classify([]string{"a"}); !errors.Is(err, ErrNoLabels) {
		t.Errorf("Classify() error = %v, want ErrNoLabels", err)
	}
}

func TestLearn(t *testing.T) {
	c := New(WithOrder(2))
	_ = c.Train(t.Context(), []Dataset{{Label: "l", Sentences: [][]string{{"a", "b"}}}})

	if err := c.Learn("l", []string{"a", "c"}); err != nil {
		t.Fatalf("Learn() failed: %v", err)
	}
	f, _ := c.Family("l")
	if p, _ := f.Primary.Probability("a", "c"); p != 0.5 {
		t.Errorf("P(c|a) after Learn = %v, want 0.5", p)
	}
	if err := c.Learn("missing", []string{"a", "b"}); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("Learn() error = %v, want ErrUnknownLabel", err)
	}
}

func TestSaveLoad(t *testing.T) {
	c := setupTrained(t)
	store := markov.NewFileStore(t.TempDir())

	if err := c.Save(t.Context(), store); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded := New()
	if err := loaded.Load(t.Context(), store, []string{"ab", "xy"}); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	sentence := corpus.NewTokenizer(corpus.WithCharacters()).Symbols("abab xyxy")
	_, want, _ := c.Classify(sentence)
	_, got, _ := loaded.Classify(sentence)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scores after Load = %+v, want %+v", got, want)
	}

	if err := New().Load(t.Context(), store, []string{"ab", "zz"}); !errors.Is(err, markov.ErrModelNotFound) {
		t.Errorf("Load() of a missing label error = %v, want ErrModelNotFound", err)
	}
}

func TestSaveLoadPinnedFiles(t *testing.T) {
	c := setupTrained(t)
	dir := t.TempDir()
	store := &markov.FileStore{Dir: dir, Codec: markov.JSONCodec, CountFile: "c.json", ProbFile: "p.json"}

	if err := c.Save(t.Context(), store); !errors.Is(err, ErrNameCollision) {
		t.Fatalf("Save() to pinned files error = %v, want ErrNameCollision", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "c.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Save() wrote c.json despite the collision: %v", err)
	}

	// One label with a bigram primary has a single model and fits the pinned pair.
	single := New(WithOrder(2))
	err := single.Train(t.Context(), []Dataset{{Label: "ab", Sentences: sentencesOf(t, abText)}})
	if err != nil {
		t.Fatalf("Train() failed: %v", err)
	}
	if err = single.Save(t.Context(), store); err != nil {
		t.Fatalf("Save() of a single model failed: %v", err)
	}

	loaded := New()
	err = loaded.Load(t.Context(), store, []string{"ab", "xy"})
	if !errors.Is(err, ErrNameCollision) {
		t.Errorf("Load() from pinned files error = %v, want ErrNameCollision", err)
	}
	if len(loaded.Labels()) != 0 {
		t.Errorf("Labels() after failed Load = %v, want none", loaded.Labels())
	}

	sameFile := &markov.FileStore{Dir: dir, CountFile: "m.json", ProbFile: "m.json"}
	if err = single.Save(t.Context(), sameFile); !errors.Is(err, ErrNameCollision) {
		t.Errorf("Save() with one file for both tables error = %v, want ErrNameCollision", err)
	}
}

func TestWithMinProbability(t *testing.T) {
	for _, p := range []float64{0, -0.5, 1.5, math.NaN()} {
		if got := New(WithMinProbability(p)).minProb; got != markov.DefaultMinProbability {
			t.Errorf("WithMinProbability(%v) floor = %v, want default", p, got)
		}
	}
	if got := New(WithMinProbability(1e-6)).minProb; got != 1e-6 {
		t.Errorf("WithMinProbability(1e-6) floor = %v", got)
	}

	c := setupTrained(t, WithMinProbability(0))
	sentence := corpus.NewTokenizer(corpus.WithCharacters()).Symbols("qqqq zzzz")
	_, scores, err := c.Classify(sentence)
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	for _, s := range scores {
		if math.IsInf(s.LogProbability, 0) || math.IsNaN(s.LogProbability) {
			t.Errorf("label %s LogProbability = %v, want finite", s.Label, s.LogProbability)
		}
	}
	if _, err = json.Marshal(scores); err != nil {
		t.Errorf("json.Marshal(scores) failed: %v", err)
	}
}

func TestModelName(t *testing.T) {
	c := New(WithOrder(3))
	if got := c.ModelName("ru", 3); got != "ru" {
		t.Errorf("ModelName(ru, 3) = %s", got)
	}
	if got := c.ModelName("ru", 2); got != "ru.order2" {
		t.Errorf("ModelName(ru, 2) = %s", got)
	}
}
