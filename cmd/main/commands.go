package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/CTAG07/markovlang/pkg/classify"
	"github.com/CTAG07/markovlang/pkg/corpus"
	"github.com/spf13/cobra"
)

// app is the state shared by every command.
type app struct {
	configPath string
	logLevel   string
	config     *Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "markovlang",
		Short:         "Classify closely related languages with n-gram Markov models",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			level := config.Server.LogLevel
			if a.logLevel != "" {
				level = a.logLevel
			}
			a.config = config
			a.logger = newLogger(cmd.ErrOrStderr(), level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./config.json", "path to the JSON config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")

	cmd.AddCommand(
		a.newTrainCmd(),
		a.newPredictCmd(),
		a.newClassifyCmd(),
		a.newExperimentCmd(),
		a.newStatsCmd(),
		a.newPruneCmd(),
		a.newServeCmd(),
	)
	return cmd
}

// modelFlags registers the flags that override the model section of the config.
func (a *app) modelFlags(cmd *cobra.Command, labels *[]string) {
	cmd.Flags().Int("order", 0, "n-gram order of the primary models (overrides config)")
	cmd.Flags().String("symbols", "", "symbol mode: words or characters (overrides config)")
	if labels != nil {
		cmd.Flags().StringArrayVarP(labels, "label", "l", nil, "label and corpus directory as name=dir, repeatable (overrides config)")
	}
}

// applyModelFlags copies the set model flags into the config.
func (a *app) applyModelFlags(cmd *cobra.Command, labels []string) error {
	if cmd.Flags().Changed("order") {
		order, _ := cmd.Flags().GetInt("order")
		a.config.Model.Order = order
	}
	if cmd.Flags().Changed("symbols") {
		symbols, _ := cmd.Flags().GetString("symbols")
		a.config.Model.Symbols = symbols
	}
	if len(labels) > 0 {
		a.config.Model.Labels = a.config.Model.Labels[:0]
		for _, value := range labels {
			l, err := parseLabel(value)
			if err != nil {
				return err
			}
			a.config.Model.Labels = append(a.config.Model.Labels, l)
		}
	}
	return a.config.Validate()
}

// loadClassifier opens the store and loads the families of labels from it.
func (a *app) loadClassifier(cmd *cobra.Command, labels []string) (*classify.Classifier, *storage, error) {
	st, err := openStorage(a.config.Storage, a.logger)
	if err != nil {
		return nil, nil, err
	}
	c := newClassifier(a.config.Model, a.logger)
	if err = c.Load(cmd.Context(), st.store, labels); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return c, st, nil
}

func (a *app) newTrainCmd() *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train every label on its corpus and save the models",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyModelFlags(cmd, labels); err != nil {
				return err
			}
			data, err := loadDatasets(cmd.Context(), a.config.Model.Labels, newTokenizer(a.config.Model), a.logger)
			if err != nil {
				return err
			}

			c := newClassifier(a.config.Model, a.logger)
			if err = c.Train(cmd.Context(), data); err != nil {
				return err
			}

			st, err := openStorage(a.config.Storage, a.logger)
			if err != nil {
				return err
			}
			defer func(st *storage) {
				_ = st.Close()
			}(st)
			if err = c.Save(cmd.Context(), st.store); err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), c.Stats())
		},
	}
	a.modelFlags(cmd, &labels)
	return cmd
}

func (a *app) newPredictCmd() *cobra.Command {
	var noBackoff bool
	cmd := &cobra.Command{
		Use:   "predict <label> <corpus-dir>",
		Short: "Score a corpus with the saved models of one label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyModelFlags(cmd, nil); err != nil {
				return err
			}
			label, dir := args[0], args[1]
			c, st, err := a.loadClassifier(cmd, []string{label})
			if err != nil {
				return err
			}
			defer func(st *storage) {
				_ = st.Close()
			}(st)

			data, err := corpus.ReadCorpus(dir, newTokenizer(a.config.Model))
			if err != nil {
				return err
			}
			f, _ := c.Family(label)
			chain := f.Chain
			if noBackoff {
				chain = nil
			}

			var sumProb, sumLog float64
			for _, sentence := range data.Sentences {
				ngrams := corpus.NGrams(sentence, c.Order())
				p, err := f.Primary.Predict(ngrams, chain...)
				if err != nil {
					return err
				}
				lp, err := f.Primary.LogPredict(ngrams, chain...)
				if err != nil {
					return err
				}
				sumProb += p
				sumLog += lp
			}

			n := float64(len(data.Sentences))
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Documents: %d\n", len(data.Documents))
			_, _ = fmt.Fprintf(w, "Sentences: %d\n", len(data.Sentences))
			if n > 0 {
				_, _ = fmt.Fprintf(w, "Mean probability: %g\n", sumProb/n)
				_, _ = fmt.Fprintf(w, "Mean log probability: %g\n", sumLog/n)
			}
			return nil
		},
	}
	a.modelFlags(cmd, nil)
	cmd.Flags().BoolVar(&noBackoff, "no-backoff", false, "score with the primary model only")
	return cmd
}

func (a *app) newClassifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Label every sentence of the text, or of stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyModelFlags(cmd, nil); err != nil {
				return err
			}
			c, st, err := a.loadClassifier(cmd, a.config.LabelNames())
			if err != nil {
				return err
			}
			defer func(st *storage) {
				_ = st.Close()
			}(st)

			var input io.Reader = cmd.InOrStdin()
			if len(args) > 0 {
				input = strings.NewReader(strings.Join(args, " "))
			}
			sentences, err := newTokenizer(a.config.Model).Sentences(input)
			if err != nil {
				return err
			}

			results := make([]SentenceResult, 0, len(sentences))
			for _, sentence := range sentences {
				label, scores, err := c.Classify(sentence)
				if err != nil {
					return err
				}
				results = append(results, SentenceResult{Symbols: sentence, Label: label, Scores: scores})
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), ClassifyResponse{Sentences: results})
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range results {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", r.Label, strings.Join(r.Symbols, " "))
			}
			return tw.Flush()
		},
	}
	a.modelFlags(cmd, nil)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scores of every label as JSON")
	return cmd
}

func (a *app) newExperimentCmd() *cobra.Command {
	var labels []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Measure accuracy, precision, recall and F1 over repeated random splits",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyModelFlags(cmd, labels); err != nil {
				return err
			}
			exp := a.config.Experiment
			if cmd.Flags().Changed("runs") {
				exp.Runs, _ = cmd.Flags().GetInt("runs")
			}
			if cmd.Flags().Changed("train-size") {
				exp.TrainSize, _ = cmd.Flags().GetFloat64("train-size")
			}
			if cmd.Flags().Changed("seed") {
				exp.Seed, _ = cmd.Flags().GetUint64("seed")
			}

			data, err := loadDatasets(cmd.Context(), a.config.Model.Labels, newTokenizer(a.config.Model), a.logger)
			if err != nil {
				return err
			}
			report, err := classify.Experiment(cmd.Context(), data, classify.ExperimentConfig{
				Runs:      exp.Runs,
				TrainSize: exp.TrainSize,
				Seed:      exp.Seed,
			},
				classify.WithOrder(a.config.Model.Order),
				classify.WithMinProbability(a.config.Model.MinProbability),
				classify.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report, a.config.LabelNames())
		},
	}
	a.modelFlags(cmd, &labels)
	cmd.Flags().Int("runs", 0, "number of experiments (overrides config)")
	cmd.Flags().Float64("train-size", 0, "share of sentences used for training (overrides config)")
	cmd.Flags().Uint64("seed", 0, "shuffle seed (overrides config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the size of every saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyModelFlags(cmd, nil); err != nil {
				return err
			}
			c, st, err := a.loadClassifier(cmd, a.config.LabelNames())
			if err != nil {
				return err
			}
			defer func(st *storage) {
				_ = st.Close()
			}(st)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), c.Stats())
			}
			return printStats(cmd.OutOrStdout(), c.Stats())
		},
	}
	a.modelFlags(cmd, nil)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (a *app) newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune <min-freq>",
		Short: "Remove transitions seen min-freq times or fewer from every saved model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minFreq, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid min-freq '%s': %w", args[0], err)
			}
			if err = a.applyModelFlags(cmd, nil); err != nil {
				return err
			}
			c, st, err := a.loadClassifier(cmd, a.config.LabelNames())
			if err != nil {
				return err
			}
			defer func(st *storage) {
				_ = st.Close()
			}(st)

			removed := c.Prune(minFreq)
			if err = c.Save(cmd.Context(), st.store); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d transitions\n", removed)
			return nil
		},
	}
	a.modelFlags(cmd, nil)
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyModelFlags(cmd, nil); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				a.config.Server.ApiAddr, _ = cmd.Flags().GetString("addr")
			}
			return serve(cmd.Context(), a.config, a.logger)
		},
	}
	a.modelFlags(cmd, nil)
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, stats []classify.FamilyStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "MODEL\tORDER\tCONTEXTS\tTRANSITIONS\tTOTAL")
	for _, fs := range stats {
		for _, m := range fs.Models {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", m.Name, m.Order, m.Contexts, m.Transitions, m.TotalFrequency)
		}
	}
	return tw.Flush()
}

func printReport(w io.Writer, report *classify.Report, labels []string) error {
	_, _ = fmt.Fprintf(w, "Experiments: %d\nNGrams: %d\nTrain set size: %g\nAvg accuracy: %.4f\n\n",
		len(report.Runs), report.Order, report.TrainSize, report.Accuracy)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LABEL\tPRECISION\tRECALL\tF1")
	for _, label := range labels {
		m := report.Labels[label]
		_, _ = fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\n", label, m.Precision, m.Recall, m.F1)
	}
	return tw.Flush()
}
