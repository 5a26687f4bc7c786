package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/markovlang/pkg/classify"
	"github.com/CTAG07/markovlang/pkg/corpus"
	"github.com/CTAG07/markovlang/pkg/markov"
	"golang.org/x/sync/errgroup"
)

// storage is the model store selected by the configuration.
type storage struct {
	store markov.Store
	db    *sql.DB
}

// openStorage opens the configured backend. The caller must Close it.
func openStorage(cfg *StorageConfig, logger *slog.Logger) (*storage, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := openDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s, err := markov.NewSQLStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.SetLogger(logger)
		logger.Debug("Using sqlite model store", "driver", sqliteDriver, "path", cfg.DatabasePath)
		return &storage{store: s, db: db}, nil
	default:
		codec, err := markov.CodecByName(cfg.Codec)
		if err != nil {
			return nil, err
		}
		logger.Debug("Using file model store", "dir", cfg.Dir, "codec", codec.Extension())
		return &storage{store: &markov.FileStore{Dir: cfg.Dir, Codec: codec}}, nil
	}
}

// openDB opens the sqlite database at path and prepares the markov schema.
func openDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := initDB(path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err = db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply '%s': %w", pragma, err)
		}
	}
	if err = markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup markov schema: %w", err)
	}
	return db, nil
}

// Close releases the database, if any.
func (s *storage) Close() error {
	if closer, ok := s.store.(*markov.SQLStore); ok {
		closer.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func newTokenizer(cfg *ModelConfig) *corpus.Tokenizer {
	if cfg.Symbols == "characters" {
		return corpus.NewTokenizer(corpus.WithCharacters())
	}
	return corpus.NewTokenizer()
}

func newClassifier(cfg *ModelConfig, logger *slog.Logger) *classify.Classifier {
	return classify.New(
		classify.WithOrder(cfg.Order),
		classify.WithMinProbability(cfg.MinProbability),
		classify.WithLogger(logger),
	)
}

// loadDatasets reads the corpus of every configured label concurrently.
func loadDatasets(ctx context.Context, labels []LabelConfig, tok *corpus.Tokenizer, logger *slog.Logger) ([]classify.Dataset, error) {
	data := make([]classify.Dataset, len(labels))
	g, ctx := errgroup.WithContext(ctx)
	for i, l := range labels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := corpus.ReadCorpus(l.Corpus, tok)
			if err != nil {
				return fmt.Errorf("label '%s': %w", l.Name, err)
			}
			logger.Info("Corpus read",
				"label", l.Name,
				"path", l.Corpus,
				"documents", len(c.Documents),
				"sentences", len(c.Sentences),
			)
			data[i] = classify.Dataset{Label: l.Name, Sentences: c.Sentences}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// parseLabel parses a "name=dir" flag value.
func parseLabel(value string) (LabelConfig, error) {
	name, dir, ok := strings.Cut(value, "=")
	if !ok || name == "" || dir == "" {
		return LabelConfig{}, fmt.Errorf("label must look like name=dir, got '%s'", value)
	}
	return LabelConfig{Name: name, Corpus: dir}, nil
}
