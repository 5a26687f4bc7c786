package markov

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	text := "one fish two fish red fish blue fish"

	for _, codec := range []Codec{JSONCodec, MsgpackCodec} {
		t.Run(codec.Extension(), func(t *testing.T) {
			store := &FileStore{Dir: t.TempDir(), Codec: codec}
			m := setupFittedModel(t, 3, text)

			if err := m.Save(ctx, store, "fish"); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}

			loaded := New(WithOrder(3))
			if err := loaded.Load(ctx, store, "fish"); err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if !reflect.DeepEqual(loaded.Probabilities(), m.Probabilities()) {
				t.Error("loaded probability table differs from the saved one")
			}
			if !reflect.DeepEqual(loaded.Counts(), m.Counts()) {
				t.Error("loaded count table differs from the saved one")
			}

			seq := ngramsOf(chars("two fish"), 3)
			want, _ := m.Predict(seq)
			got, _ := loaded.Predict(seq)
			if got != want {
				t.Errorf("Predict() after load = %v, want %v", got, want)
			}
		})
	}
}

func TestFileStorePaths(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := NewFileStore(dir)
	m := setupFittedModel(t, 2, "abab")
	if err := m.Save(ctx, store, "blr"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	for _, name := range []string{"blr.count.json", "blr.prob.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}

	pinned := &FileStore{Dir: dir, CountFile: "counts.json", ProbFile: "probs.json"}
	countPath, probPath := pinned.Paths("ignored")
	if countPath != filepath.Join(dir, "counts.json") || probPath != filepath.Join(dir, "probs.json") {
		t.Errorf("Paths() = (%s, %s), want the pinned file names", countPath, probPath)
	}
}

func TestFileStoreReadsPlainJSON(t *testing.T) {
	dir := t.TempDir()
	countJSON := `{"a":{"b":3},"b":{"a":1,"c":1}}`
	probJSON := `{"a":{"b":1},"b":{"a":0.5,"c":0.5}}`
	if err := os.WriteFile(filepath.Join(dir, "ru.count.json"), []byte(countJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ru.prob.json"), []byte(probJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New()
	if err := m.Load(context.Background(), NewFileStore(dir), "ru"); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if p, _ := m.Probability("b", "c"); p != 0.5 {
		t.Errorf("P(c|b) = %v, want 0.5", p)
	}
	if c, _ := m.Count("a", "b"); c != 3 {
		t.Errorf("count(a -> b) = %d, want 3", c)
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewFileStore(dir)

	saved := setupFittedModel(t, 2, "xyxy")
	if err := saved.Save(ctx, store, "broken"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	// The count artifact is fine, the probability artifact is corrupt.
	if err := os.WriteFile(filepath.Join(dir, "broken.prob.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := setupFittedModel(t, 2, "abab")
	beforeCounts, beforeProbs := m.Counts(), m.Probabilities()

	if err := m.Load(ctx, store, "broken"); err == nil {
		t.Fatal("Load() of a corrupt artifact succeeded, want error")
	}
	if err := m.Load(ctx, store, "missing"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load() of a missing model error = %v, want ErrModelNotFound", err)
	}

	if !reflect.DeepEqual(m.Counts(), beforeCounts) || !reflect.DeepEqual(m.Probabilities(), beforeProbs) {
		t.Error("a failed Load() modified the model")
	}
}

func TestFileStoreSaveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	err := New().Save(ctx, NewFileStore(dir), "m")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("canceled Save() wrote %d files", len(entries))
	}
}

func TestFileStoreSaveWriteFailure(t *testing.T) {
	m := setupFittedModel(t, 2, "abcabd")

	t.Run("dir is a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "models")
		if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
		err := m.Save(context.Background(), NewFileStore(blocker), "m")
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			t.Errorf("Save() error = %v, want a *fs.PathError", err)
		}
	})

	t.Run("target is a directory", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(dir)
		countPath, probPath := store.Paths("m")
		if err := os.MkdirAll(filepath.Join(countPath, "occupied"), 0o755); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := m.Save(context.Background(), store, "m"); err == nil {
			t.Fatal("Save() over a directory succeeded, want an error")
		}
		if _, err := os.Stat(probPath); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Save() wrote %s after the count file failed: %v", probPath, err)
		}
	})
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]Codec{"": JSONCodec, "json": JSONCodec, "MsgPack": MsgpackCodec} {
		got, err := CodecByName(name)
		if err != nil || got != want {
			t.Errorf("CodecByName(%q) = (%v, %v), want %v", name, got, err, want)
		}
	}
	if _, err := CodecByName("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("CodecByName(xml) error = %v, want ErrUnknownCodec", err)
	}
}
