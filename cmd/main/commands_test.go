package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/markovlang/pkg/classify"
)

// setupWorkspace writes two small corpora and a config pointing at them.
func setupWorkspace(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	corpora := map[string]string{
		"ab": "abab abba. baab abab! aabb baba? abab baab. bbaa abab.",
		"xy": "xyxy yxxy. xyyx xyxy! yyxx xxyy? xyxy yxyx. yxyx xxyx.",
	}
	for label, text := range corpora {
		labelDir := filepath.Join(dir, "corpus", label)
		if err := os.MkdirAll(labelDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(labelDir, "1.txt"), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	config := DefaultConfig()
	config.Server.LogLevel = "error"
	config.Model.Symbols = "characters"
	config.Model.Labels = []LabelConfig{
		{Name: "ab", Corpus: filepath.Join(dir, "corpus", "ab")},
		{Name: "xy", Corpus: filepath.Join(dir, "corpus", "xy")},
	}
	config.Storage.Backend = backend
	config.Storage.Dir = filepath.Join(dir, "models")
	config.Storage.DatabasePath = filepath.Join(dir, "models", "test.db")
	config.Experiment.Runs = 2
	config.Experiment.TrainSize = 0.6

	data, err := json.Marshal(config)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err = os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCmd executes the root command and returns its standard output.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, errOut.String())
	}
	return out.String()
}

func TestTrainThenClassify(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			config := setupWorkspace(t, backend)

			out := runCmd(t, "train", "--config", config)
			if !strings.Contains(out, "ab.order2") {
				t.Errorf("train output misses the back-off model:\n%s", out)
			}

			out = runCmd(t, "classify", "--config", config, "--json", "abba abab. xxyy yxyx.")
			var resp ClassifyResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatalf("classify output is not JSON: %v\n%s", err, out)
			}
			if len(resp.Sentences) != 2 || resp.Sentences[0].Label != "ab" || resp.Sentences[1].Label != "xy" {
				t.Errorf("unexpected classification: %+v", resp.Sentences)
			}

			out = runCmd(t, "stats", "--config", config, "--json")
			var stats []classify.FamilyStats
			if err := json.Unmarshal([]byte(out), &stats); err != nil || len(stats) != 2 {
				t.Errorf("stats output = %s, %v", out, err)
			}

			out = runCmd(t, "prune", "--config", config, "1")
			if !strings.HasPrefix(out, "Removed ") {
				t.Errorf("prune output = %q", out)
			}
		})
	}
}

func TestPredictCommand(t *testing.T) {
	config := setupWorkspace(t, "file")
	runCmd(t, "train", "--config", config)

	corpusDir := filepath.Join(filepath.Dir(config), "corpus", "ab")
	out := runCmd(t, "predict", "--config", config, "ab", corpusDir)
	if !strings.Contains(out, "Sentences: 5") || !strings.Contains(out, "Mean probability:") {
		t.Errorf("unexpected predict output:\n%s", out)
	}
}

func TestExperimentCommand(t *testing.T) {
	config := setupWorkspace(t, "file")

	out := runCmd(t, "experiment", "--config", config, "--json", "--runs", "3")
	var report classify.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("experiment output is not JSON: %v\n%s", err, out)
	}
	if len(report.Runs) != 3 || report.TrainSize != 0.6 {
		t.Errorf("flags and config not applied: runs %d, train size %v", len(report.Runs), report.TrainSize)
	}
	if _, ok := report.Labels["xy"]; !ok {
		t.Errorf("report misses label metrics: %+v", report.Labels)
	}
}

func TestCommandErrors(t *testing.T) {
	config := setupWorkspace(t, "file")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"classify", "--config", config, "abab"})
	if err := cmd.Execute(); err == nil {
		t.Error("classify before train succeeded")
	}

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"train", "--config", config, "--label", "broken"})
	if err := cmd.Execute(); err == nil {
		t.Error("train with a malformed label succeeded")
	}
}
