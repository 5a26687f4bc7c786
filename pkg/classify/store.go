package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CTAG07/markovlang/pkg/markov"
)

// ErrNameCollision is returned when a store would keep two models of a
// classifier in the same file.
var ErrNameCollision = errors.New("model names collide in store")

// pathStore is a store that keeps each model in named files.
type pathStore interface {
	Paths(name string) (string, string)
}

// ModelName is the store name of the model of the given order in a label's
// family. The primary model is stored under the bare label.
func (c *Classifier) ModelName(label string, order int) string {
	if order == c.order {
		return label
	}
	return fmt.Sprintf("%s.order%d", label, order)
}

// checkNames fails when store maps two model names of the given labels, or the
// two tables of one model, onto the same file. A FileStore with pinned file
// names collides as soon as a classifier has more than one model.
func (c *Classifier) checkNames(store markov.Store, labels []string) error {
	ps, ok := store.(pathStore)
	if !ok {
		return nil
	}
	orders := append([]int{c.order}, c.chainOrders()...)
	owners := make(map[string]string)
	for _, label := range labels {
		for _, order := range orders {
			name := c.ModelName(label, order)
			countPath, probPath := ps.Paths(name)
			for _, path := range []string{countPath, probPath} {
				if prev, dup := owners[path]; dup {
					return fmt.Errorf("%w: '%s' and '%s' both use %s", ErrNameCollision, prev, name, path)
				}
				owners[path] = name
			}
		}
	}
	return nil
}

// Save writes every model of every family to store.
func (c *Classifier) Save(ctx context.Context, store markov.Store) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.labels) == 0 {
		return ErrNoLabels
	}
	if err := c.checkNames(store, c.labels); err != nil {
		return err
	}

	for _, label := range c.labels {
		f := c.families[label]
		if err := f.Primary.Save(ctx, store, c.ModelName(label, c.order)); err != nil {
			return err
		}
		for _, m := range f.Chain {
			if err := m.Save(ctx, store, c.ModelName(label, m.Order())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load replaces the classifier's families with the ones saved in store for the
// given labels. Either every model loads or the classifier is left unchanged.
func (c *Classifier) Load(ctx context.Context, store markov.Store, labels []string) error {
	if len(labels) == 0 {
		return ErrNoLabels
	}
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if seen[label] {
			return fmt.Errorf("%w: '%s'", ErrDuplicateLabel, label)
		}
		seen[label] = true
	}
	if err := c.checkNames(store, labels); err != nil {
		return err
	}

	families := make(map[string]*Family, len(labels))
	for _, label := range labels {
		f := c.newFamily()
		if err := f.Primary.Load(ctx, store, c.ModelName(label, c.order)); err != nil {
			return err
		}
		for _, m := range f.Chain {
			if err := m.Load(ctx, store, c.ModelName(label, m.Order())); err != nil {
				return err
			}
		}
		// A store that records orders must agree with the classifier.
		if got := f.Primary.Order(); got != c.order {
			return fmt.Errorf("model '%s' has order %d, classifier expects %d", label, got, c.order)
		}
		families[label] = f
	}

	c.mu.Lock()
	c.labels = append([]string(nil), labels...)
	c.families = families
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Classifier loaded", slog.Any("labels", labels))
	return nil
}
