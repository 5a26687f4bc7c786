package markov

import "log/slog"

// Prune removes every transition observed minFreq times or fewer, drops
// contexts left without transitions and recomputes the probability table.
// This is useful for reducing the size of a model by removing rare, and often
// noisy, transitions. It returns the number of transitions removed.
func (m *Model) Prune(minFreq int) int {
	var removed int
	for context, targets := range m.counts {
		for target, c := range targets {
			if c <= minFreq {
				delete(targets, target)
				removed++
			}
		}
		if len(targets) == 0 {
			delete(m.counts, context)
		}
	}
	m.recompute()

	m.logger.Info("Model pruned",
		slog.Int("min_frequency", minFreq),
		slog.Int("transitions_removed", removed),
		slog.Int("contexts_left", len(m.counts)),
	)
	return removed
}
