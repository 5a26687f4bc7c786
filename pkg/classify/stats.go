package classify

import (
	"fmt"

	"github.com/CTAG07/markovlang/pkg/markov"
)

// ModelStats describes one stored model of a family.
type ModelStats struct {
	Name string `json:"name"`
	markov.ModelStats
}

// FamilyStats describes every model of a label's family, primary first.
type FamilyStats struct {
	Label  string       `json:"label"`
	Models []ModelStats `json:"models"`
}

func (c *Classifier) familyStats(label string) FamilyStats {
	f := c.families[label]
	fs := FamilyStats{Label: label}
	for _, m := range append([]*markov.Model{f.Primary}, f.Chain...) {
		fs.Models = append(fs.Models, ModelStats{
			Name:       c.ModelName(label, m.Order()),
			ModelStats: m.Stats(),
		})
	}
	return fs
}

// Stats returns the statistics of every family in label order.
func (c *Classifier) Stats() []FamilyStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := make([]FamilyStats, 0, len(c.labels))
	for _, label := range c.labels {
		stats = append(stats, c.familyStats(label))
	}
	return stats
}

// LabelStats returns the statistics of one family.
func (c *Classifier) LabelStats(label string) (FamilyStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.families[label]; !ok {
		return FamilyStats{}, false
	}
	return c.familyStats(label), true
}

// Prune prunes every model of every family and returns the number of
// transitions removed in total.
func (c *Classifier) Prune(minFreq int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int
	for _, f := range c.families {
		removed += f.prune(minFreq)
	}
	return removed
}

// PruneLabel prunes every model of one family.
func (c *Classifier) PruneLabel(label string, minFreq int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.families[label]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrUnknownLabel, label)
	}
	return f.prune(minFreq), nil
}

func (f *Family) prune(minFreq int) int {
	removed := f.Primary.Prune(minFreq)
	for _, m := range f.Chain {
		removed += m.Prune(minFreq)
	}
	return removed
}
