package markov

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Order          int `json:"order"`           // The default n-gram length.
	Contexts       int `json:"contexts"`        // The number of distinct context keys.
	Transitions    int `json:"transitions"`     // The number of unique context->target links.
	TotalFrequency int `json:"total_frequency"` // The sum of all counts; the number of trained transitions.
}

// Stats returns a snapshot of the model's table sizes.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{Order: m.order, Contexts: len(m.counts)}
	for _, targets := range m.counts {
		stats.Transitions += len(targets)
		for _, c := range targets {
			stats.TotalFrequency += c
		}
	}
	return stats
}
