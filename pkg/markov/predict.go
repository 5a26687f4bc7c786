package markov

import (
	"errors"
	"fmt"
	"math"
)

// ErrNilChainModel is returned when a back-off chain contains a nil model.
var ErrNilChainModel = errors.New("back-off chain contains a nil model")

// Predict scores a sequence of n-grams as the product of its transition
// probabilities at the model's default order. A transition missing from the
// probability table is estimated from the back-off chain when one is given,
// and otherwise scored with the floor probability.
//
// The chain is ordered from the highest order down, each model one order below
// the previous, normally ending at a bigram model.
//
// The product is accumulated directly, so long sequences can underflow to zero.
// LogPredict scores the same factors in log space.
func (m *Model) Predict(ngrams []NGram, chain ...*Model) (float64, error) {
	prob := 1.0
	err := m.score(ngrams, chain, func(p float64) {
		prob *= p
	})
	if err != nil {
		return 0, err
	}
	return prob, nil
}

// LogPredict returns the sum of the natural logarithms of the factors Predict multiplies.
func (m *Model) LogPredict(ngrams []NGram, chain ...*Model) (float64, error) {
	var sum float64
	err := m.score(ngrams, chain, func(p float64) {
		sum += math.Log(p)
	})
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (m *Model) score(ngrams []NGram, chain []*Model, emit func(float64)) error {
	for i, aux := range chain {
		if aux == nil {
			return fmt.Errorf("chain index %d: %w", i, ErrNilChainModel)
		}
	}
	for i, ngram := range ngrams {
		context, target, err := Split(ngram, m.order)
		if err != nil {
			return fmt.Errorf("could not split n-gram %d: %w", i, err)
		}
		emit(m.transition(context, target, chain))
	}
	return nil
}

// transition resolves a single P(target | context).
func (m *Model) transition(context []string, target string, chain []*Model) float64 {
	if p, ok := m.lookup(context, target); ok {
		return p
	}
	if len(chain) > 0 {
		return m.backoff(context, target, chain, 0)
	}
	return m.minProb
}
