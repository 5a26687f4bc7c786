package markov

import (
	"reflect"
	"testing"
)

func TestPrune(t *testing.T) {
	// a -> b twice; b -> c and b -> d once each.
	m := fitNGrams(t, 2, NGram{"a", "b"}, NGram{"a", "b"}, NGram{"b", "c"}, NGram{"b", "d"})

	removed := m.Prune(1)
	if removed != 2 {
		t.Errorf("Prune(1) removed %d transitions, want 2", removed)
	}
	want := FrequencyTable{"a": {"b": 2}}
	if got := m.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts() after Prune = %v, want %v", got, want)
	}
	if _, ok := m.Probability("b", "c"); ok {
		t.Error("pruned context still has probabilities")
	}
	assertNormalized(t, m)
}

func TestPruneRenormalizes(t *testing.T) {
	m := fitNGrams(t, 2, NGram{"a", "b"}, NGram{"a", "b"}, NGram{"a", "c"})
	m.Prune(1)
	if p, _ := m.Probability("a", "b"); p != 1 {
		t.Errorf("P(b|a) after Prune = %v, want 1", p)
	}
}

func TestStats(t *testing.T) {
	m := fitNGrams(t, 2, NGram{"a", "b"}, NGram{"a", "b"}, NGram{"b", "c"}, NGram{"b", "d"})
	want := ModelStats{Order: 2, Contexts: 2, Transitions: 3, TotalFrequency: 4}
	if got := m.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
