package corpus

import "github.com/CTAG07/markovlang/pkg/markov"

// NGrams returns every window of n consecutive symbols, in order. It returns
// nil when n < 1 or the sequence is shorter than n.
func NGrams(symbols []string, n int) []markov.NGram {
	if n < 1 || len(symbols) < n {
		return nil
	}
	ngrams := make([]markov.NGram, 0, len(symbols)-n+1)
	for i := 0; i+n <= len(symbols); i++ {
		ngrams = append(ngrams, markov.NGram(symbols[i:i+n:i+n]))
	}
	return ngrams
}
