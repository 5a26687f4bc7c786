package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/CTAG07/markovlang/pkg/corpus"
	"github.com/CTAG07/markovlang/pkg/markov"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoLabels is returned when a classifier is used before it has any label.
	ErrNoLabels = errors.New("classifier has no labels")
	// ErrUnknownLabel is returned for a label the classifier was not trained on.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrDuplicateLabel is returned when a training set names a label twice.
	ErrDuplicateLabel = errors.New("duplicate label")
)

// Dataset is the training data of one label: tokenized sentences.
type Dataset struct {
	Label     string
	Sentences [][]string
}

// Family is the primary model of a label and its back-off chain, ordered from
// order-1 down to 2.
type Family struct {
	Primary *markov.Model
	Chain   []*markov.Model
}

// Score is the probability a label's family assigns to a sentence.
type Score struct {
	Label          string  `json:"label"`
	Probability    float64 `json:"probability"`
	LogProbability float64 `json:"log_probability"`
}

// Classifier holds one model family per label.
// It is safe for concurrent use.
type Classifier struct {
	order    int
	minProb  float64
	logger   *slog.Logger
	mu       sync.RWMutex
	labels   []string
	families map[string]*Family
}

// Option is a function that configures a Classifier.
type Option func(*Classifier)

// WithOrder sets the order of the primary models. Values below 1 are ignored.
// Default: 3
func WithOrder(n int) Option {
	return func(c *Classifier) {
		if n >= 1 {
			c.order = n
		}
	}
}

// WithMinProbability sets the floor probability of every model. The floor must
// lie in (0, 1]; other values are ignored, since a zero floor would make
// LogProbability infinite.
// Default: markov.DefaultMinProbability
func WithMinProbability(p float64) Option {
	return func(c *Classifier) {
		if p > 0 && p <= 1 {
			c.minProb = p
		}
	}
}

// WithLogger sets the logger passed down to every model.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		order:    3,
		minProb:  markov.DefaultMinProbability,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		families: make(map[string]*Family),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Order returns the order of the primary models.
func (c *Classifier) Order() int { return c.order }

// Labels returns the labels in classification order.
func (c *Classifier) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.labels...)
}

// Family returns the model family of label. The models are shared, not copied.
func (c *Classifier) Family(label string) (*Family, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.families[label]
	return f, ok
}

// chainOrders lists the orders of the back-off chain, highest first.
func (c *Classifier) chainOrders() []int {
	var orders []int
	for k := c.order - 1; k >= 2; k-- {
		orders = append(orders, k)
	}
	return orders
}

func (c *Classifier) newModel(order int) *markov.Model {
	return markov.New(
		markov.WithOrder(order),
		markov.WithMinProbability(c.minProb),
		markov.WithLogger(c.logger),
	)
}

func (c *Classifier) newFamily() *Family {
	f := &Family{Primary: c.newModel(c.order)}
	for _, k := range c.chainOrders() {
		f.Chain = append(f.Chain, c.newModel(k))
	}
	return f
}

// fit trains every model of the family on the sentences at its own order.
func (f *Family) fit(sentences [][]string) error {
	for _, m := range append([]*markov.Model{f.Primary}, f.Chain...) {
		var ngrams []markov.NGram
		for _, sentence := range sentences {
			ngrams = append(ngrams, corpus.NGrams(sentence, m.Order())...)
		}
		if err := m.Fit(ngrams); err != nil {
			return err
		}
	}
	return nil
}

// Train replaces every family with fresh models trained on data. Labels keep the
// order of data, which also breaks classification ties. Families are trained
// concurrently; on error the classifier is left unchanged.
func (c *Classifier) Train(ctx context.Context, data []Dataset) error {
	if len(data) == 0 {
		return ErrNoLabels
	}
	labels := make([]string, len(data))
	seen := make(map[string]bool, len(data))
	for i, d := range data {
		if seen[d.Label] {
			return fmt.Errorf("%w: '%s'", ErrDuplicateLabel, d.Label)
		}
		seen[d.Label] = true
		labels[i] = d.Label
	}

	built := make([]*Family, len(data))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range data {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := c.newFamily()
			if err := f.fit(d.Sentences); err != nil {
				return fmt.Errorf("could not train label '%s': %w", d.Label, err)
			}
			built[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	families := make(map[string]*Family, len(data))
	for i, label := range labels {
		families[label] = built[i]
	}

	c.mu.Lock()
	c.labels = labels
	c.families = families
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Classifier trained",
		slog.Int("labels", len(labels)),
		slog.Int("order", c.order),
	)
	return nil
}

// Learn adds one more sentence to the family of an existing label.
func (c *Classifier) Learn(label string, sentence []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.families[label]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownLabel, label)
	}
	return f.fit([][]string{sentence})
}

// Classify scores the sentence with every family and returns the label with the
// highest probability together with all scores in label order. Ties go to the
// label that comes first.
func (c *Classifier) Classify(sentence []string) (string, []Score, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.labels) == 0 {
		return "", nil, ErrNoLabels
	}

	ngrams := corpus.NGrams(sentence, c.order)
	scores := make([]Score, 0, len(c.labels))
	best := 0
	for i, label := range c.labels {
		f := c.families[label]
		p, err := f.Primary.Predict(ngrams, f.Chain...)
		if err != nil {
			return "", nil, fmt.Errorf("could not score label '%s': %w", label, err)
		}
		lp, err := f.Primary.LogPredict(ngrams, f.Chain...)
		if err != nil {
			return "", nil, fmt.Errorf("could not score label '%s': %w", label, err)
		}
		scores = append(scores, Score{Label: label, Probability: p, LogProbability: lp})
		if p > scores[best].Probability {
			best = i
		}
	}
	return scores[best].Label, scores, nil
}
