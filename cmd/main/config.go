package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CTAG07/markovlang/pkg/markov"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP API and logging.
type ServerConfig struct {
	ApiAddr  string `json:"api_addr"`
	LogLevel string `json:"log_level"`
	// ApiKey protects every /api/ endpoint when set. Requests pass it in the
	// "markovlang-auth" header.
	ApiKey string `json:"api_key"`
}

// LabelConfig names a label and the corpus directory it is trained on.
type LabelConfig struct {
	Name   string `json:"name"`
	Corpus string `json:"corpus"`
}

// ModelConfig holds the settings shared by every model of the classifier.
type ModelConfig struct {
	Order          int           `json:"order"`
	MinProbability float64       `json:"min_probability"`
	Symbols        string        `json:"symbols"` // "words" or "characters"
	Labels         []LabelConfig `json:"labels"`
}

// StorageConfig selects where trained models are kept.
type StorageConfig struct {
	Backend      string `json:"backend"` // "file" or "sqlite"
	Dir          string `json:"dir"`
	Codec        string `json:"codec"` // "json" or "msgpack", file backend only
	DatabasePath string `json:"database_path"`
}

// ExperimentConfig holds the defaults of the experiment command.
type ExperimentConfig struct {
	Runs      int     `json:"runs"`
	TrainSize float64 `json:"train_size"`
	Seed      uint64  `json:"seed"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server     *ServerConfig     `json:"server_config"`
	Model      *ModelConfig      `json:"model_config"`
	Storage    *StorageConfig    `json:"storage_config"`
	Experiment *ExperimentConfig `json:"experiment_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			ApiAddr:  ":7278",
			LogLevel: "info",
		},
		Model: &ModelConfig{
			Order:          3,
			MinProbability: markov.DefaultMinProbability,
			Symbols:        "words",
			Labels: []LabelConfig{
				{Name: "blr", Corpus: "./corpus/blr"},
				{Name: "ru", Corpus: "./corpus/ru"},
				{Name: "ukr", Corpus: "./corpus/ukr"},
			},
		},
		Storage: &StorageConfig{
			Backend:      "file",
			Dir:          "./models",
			Codec:        "json",
			DatabasePath: "./models/markovlang.db",
		},
		Experiment: &ExperimentConfig{
			Runs:      10,
			TrainSize: 0.8,
			Seed:      1,
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// Validate fills sections missing from a partial file with defaults and checks
// the values that would otherwise fail late.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Model == nil {
		c.Model = def.Model
	}
	if c.Storage == nil {
		c.Storage = def.Storage
	}
	if c.Experiment == nil {
		c.Experiment = def.Experiment
	}

	if c.Model.Order < 1 {
		return fmt.Errorf("model order must be at least 1, got %d", c.Model.Order)
	}
	if !(c.Model.MinProbability > 0 && c.Model.MinProbability <= 1) {
		return fmt.Errorf("model min_probability must be in (0, 1], got %v", c.Model.MinProbability)
	}
	switch c.Model.Symbols {
	case "words", "characters":
	default:
		return fmt.Errorf("unknown symbol mode '%s'", c.Model.Symbols)
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend '%s'", c.Storage.Backend)
	}
	if _, err := markov.CodecByName(c.Storage.Codec); err != nil {
		return err
	}
	return nil
}

// LabelNames returns the configured labels in order.
func (c *Config) LabelNames() []string {
	names := make([]string, 0, len(c.Model.Labels))
	for _, l := range c.Model.Labels {
		names = append(names, l.Name)
	}
	return names
}
