package markov

import (
	"io"
	"log/slog"
	"math"
)

// DefaultMinProbability is the floor substituted for any transition that neither
// the model nor its back-off chain can resolve.
const DefaultMinProbability = 1e-10

// DefaultOrder is the n-gram length used when no order is configured.
const DefaultOrder = 2

// FrequencyTable maps a context key to the number of times each target symbol
// was observed after it. Every stored count is at least 1.
type FrequencyTable map[string]map[string]int

// ProbabilityTable maps a context key to the maximum-likelihood distribution
// over its target symbols. It is always derived in full from a FrequencyTable.
type ProbabilityTable map[string]map[string]float64

// Model is an n-gram Markov chain over string symbols. It owns its frequency
// and probability tables exclusively and is not safe for concurrent mutation.
type Model struct {
	order     int
	minProb   float64
	separator string
	counts    FrequencyTable
	probs     ProbabilityTable
	logger    *slog.Logger
}

// Option configures a Model at construction time.
type Option func(*Model)

// WithOrder sets the default n-gram length used by Fit, Predict and the splitter.
// Values below 1 are ignored.
// Default: 2
func WithOrder(n int) Option {
	return func(m *Model) {
		if n >= 1 {
			m.order = n
		}
	}
}

// WithMinProbability sets the floor probability. Values outside [0,1] are ignored.
// Default: 1e-10
func WithMinProbability(p float64) Option {
	return func(m *Model) { m.SetMinProbability(p) }
}

// WithSeparator sets the string placed between context symbols when they are
// joined into a context key.
// Default: ""
func WithSeparator(sep string) Option {
	return func(m *Model) { m.separator = sep }
}

// WithLogger sets the logger used by the model. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.SetLogger(logger) }
}

// New creates an empty model configured by the given options.
func New(opts ...Option) *Model {
	m := &Model{
		order:   DefaultOrder,
		minProb: DefaultMinProbability,
		counts:  make(FrequencyTable),
		probs:   make(ProbabilityTable),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetLogger sets the logger for the Model. A nil logger is ignored.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetMinProbability replaces the floor probability. Values outside [0,1], and NaN,
// are ignored silently and the previous floor is kept.
func (m *Model) SetMinProbability(p float64) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return
	}
	m.minProb = p
}

// MinProbability returns the floor probability.
func (m *Model) MinProbability() float64 { return m.minProb }

// Order returns the default n-gram length.
func (m *Model) Order() int { return m.order }

// Separator returns the context key separator.
func (m *Model) Separator() string { return m.separator }

// Counts returns a copy of the frequency table.
func (m *Model) Counts() FrequencyTable {
	out := make(FrequencyTable, len(m.counts))
	for key, targets := range m.counts {
		inner := make(map[string]int, len(targets))
		for t, c := range targets {
			inner[t] = c
		}
		out[key] = inner
	}
	return out
}

// Probabilities returns a copy of the probability table.
func (m *Model) Probabilities() ProbabilityTable {
	out := make(ProbabilityTable, len(m.probs))
	for key, targets := range m.probs {
		inner := make(map[string]float64, len(targets))
		for t, p := range targets {
			inner[t] = p
		}
		out[key] = inner
	}
	return out
}

// Count returns the observed count of target after the context key.
func (m *Model) Count(context, target string) (int, bool) {
	c, ok := m.counts[context][target]
	return c, ok
}

// Probability returns P(target | context) for a context key, if it was observed.
func (m *Model) Probability(context, target string) (float64, bool) {
	p, ok := m.probs[context][target]
	return p, ok
}

// lookup joins context with this model's separator and reads its probability table.
func (m *Model) lookup(context []string, target string) (float64, bool) {
	return m.Probability(JoinContext(context, m.separator), target)
}
