package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
)

// ErrInvalidTrainSize is returned for a train share outside (0, 1].
var ErrInvalidTrainSize = errors.New("train size must be in (0, 1]")

// Split returns the first ceil(len*trainSize) sentences as the train set and the
// rest as the test set. Both share the backing array of sentences.
func Split(sentences [][]string, trainSize float64) (train, test [][]string, err error) {
	if !(trainSize > 0 && trainSize <= 1) {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTrainSize, trainSize)
	}
	cut := int(math.Ceil(float64(len(sentences)) * trainSize))
	cut = min(cut, len(sentences))
	return sentences[:cut], sentences[cut:], nil
}

// ExperimentConfig controls Experiment.
type ExperimentConfig struct {
	Runs      int     // Number of independent shuffled runs. Default: 10
	TrainSize float64 // Share of every label's sentences used for training. Default: 0.8
	Seed      uint64  // Seed of the shuffles; the same seed repeats the same splits.
}

// RunResult is the outcome of a single run.
type RunResult struct {
	Accuracy float64            `json:"accuracy"`
	Tested   int                `json:"tested"`
	Labels   map[string]Metrics `json:"labels"`
}

// Report averages the results of every run.
type Report struct {
	Order     int                `json:"order"`
	TrainSize float64            `json:"train_size"`
	Accuracy  float64            `json:"accuracy"`
	Labels    map[string]Metrics `json:"labels"`
	Runs      []RunResult        `json:"runs"`
}

// Experiment repeatedly shuffles every label's sentences, splits them into
// train and test sets, trains a fresh classifier configured with opts on the
// train sets and classifies every test sentence. The returned report holds the
// per-run results and their averages.
func Experiment(ctx context.Context, data []Dataset, cfg ExperimentConfig, opts ...Option) (*Report, error) {
	if len(data) == 0 {
		return nil, ErrNoLabels
	}
	if cfg.Runs <= 0 {
		cfg.Runs = 10
	}
	if cfg.TrainSize == 0 {
		cfg.TrainSize = 0.8
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	report := &Report{TrainSize: cfg.TrainSize, Labels: make(map[string]Metrics, len(data))}

	for run := range cfg.Runs {
		result, order, err := runOnce(ctx, rng, data, cfg.TrainSize, opts)
		if err != nil {
			return nil, fmt.Errorf("experiment run %d: %w", run+1, err)
		}
		report.Order = order
		report.Runs = append(report.Runs, result)
	}

	n := float64(len(report.Runs))
	for _, result := range report.Runs {
		report.Accuracy += result.Accuracy / n
		for label, m := range result.Labels {
			avg := report.Labels[label]
			avg.Precision += m.Precision / n
			avg.Recall += m.Recall / n
			avg.F1 += m.F1 / n
			report.Labels[label] = avg
		}
	}
	return report, nil
}

func runOnce(ctx context.Context, rng *rand.Rand, data []Dataset, trainSize float64, opts []Option) (RunResult, int, error) {
	trainSets := make([]Dataset, len(data))
	testSets := make([][][]string, len(data))
	for i, d := range data {
		shuffled := slices.Clone(d.Sentences)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		train, test, err := Split(shuffled, trainSize)
		if err != nil {
			return RunResult{}, 0, err
		}
		trainSets[i] = Dataset{Label: d.Label, Sentences: train}
		testSets[i] = test
	}

	c := New(opts...)
	if err := c.Train(ctx, trainSets); err != nil {
		return RunResult{}, 0, err
	}

	confusion := NewConfusion()
	for i, test := range testSets {
		for _, sentence := range test {
			predicted, _, err := c.Classify(sentence)
			if err != nil {
				return RunResult{}, 0, err
			}
			confusion.Record(data[i].Label, predicted)
		}
	}

	result := RunResult{
		Accuracy: confusion.Accuracy(),
		Tested:   confusion.Total,
		Labels:   make(map[string]Metrics, len(data)),
	}
	for _, d := range data {
		result.Labels[d.Label] = confusion.Metrics(d.Label)
	}

	c.logger.InfoContext(ctx, "Experiment run finished",
		slog.Float64("accuracy", result.Accuracy),
		slog.Int("tested", result.Tested),
	)
	return result, c.Order(), nil
}
