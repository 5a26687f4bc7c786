package markov

import (
	"fmt"
	"log/slog"
)

// chainLink is a split n-gram waiting to be counted.
type chainLink struct {
	context string
	target  string
}

// Fit counts every n-gram at the model's default order and then recomputes the
// probability table. Counts accumulate across calls.
func (m *Model) Fit(ngrams []NGram) error {
	return m.FitOrder(ngrams, m.order)
}

// FitOrder is Fit with an explicit order, which lets the same corpus of n-grams
// train a family of lower-order models. The whole batch is validated before any
// count changes, so an error leaves the model untouched.
func (m *Model) FitOrder(ngrams []NGram, order int) error {
	links := make([]chainLink, 0, len(ngrams))
	for i, ngram := range ngrams {
		context, target, err := m.SplitKey(ngram, order)
		if err != nil {
			return fmt.Errorf("could not split n-gram %d: %w", i, err)
		}
		links = append(links, chainLink{context: context, target: target})
	}

	for _, link := range links {
		m.addKey(link.context, link.target)
	}
	m.recompute()

	m.logger.Debug("Model fitted",
		slog.Int("order", order),
		slog.Int("ngrams", len(ngrams)),
		slog.Int("contexts", len(m.counts)),
	)
	return nil
}

// AddNewKey records a single context -> target transition and recomputes the
// probability table, so the next Predict already sees it.
func (m *Model) AddNewKey(context, target string) {
	m.addKey(context, target)
	m.recompute()
}

func (m *Model) addKey(context, target string) {
	targets, ok := m.counts[context]
	if !ok {
		targets = make(map[string]int)
		m.counts[context] = targets
	}
	targets[target]++
}

// recompute rebuilds the whole probability table from the counts.
func (m *Model) recompute() {
	probs := make(ProbabilityTable, len(m.counts))
	for context, targets := range m.counts {
		var total int
		for _, c := range targets {
			total += c
		}
		dist := make(map[string]float64, len(targets))
		for target, c := range targets {
			dist[target] = float64(c) / float64(total)
		}
		probs[context] = dist
	}
	m.probs = probs
}
