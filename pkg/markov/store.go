package markov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrModelNotFound is returned by a Store when no model is saved under a name.
	ErrModelNotFound = errors.New("model not found")
	// ErrUnknownCodec is returned by CodecByName for unsupported codec names.
	ErrUnknownCodec = errors.New("unknown codec")
)

// Snapshot is the persisted state of a model. Order is zero when the store
// does not record it.
type Snapshot struct {
	Order         int
	Counts        FrequencyTable
	Probabilities ProbabilityTable
}

// Store persists model snapshots under a name. Implementations must either
// return a complete snapshot or an error.
type Store interface {
	Save(ctx context.Context, name string, snap Snapshot) error
	Load(ctx context.Context, name string) (Snapshot, error)
}

// Save writes both tables of the model to store under name. The tables are
// written verbatim.
func (m *Model) Save(ctx context.Context, store Store, name string) error {
	snap := Snapshot{Order: m.order, Counts: m.counts, Probabilities: m.probs}
	if err := store.Save(ctx, name, snap); err != nil {
		return fmt.Errorf("could not save model '%s': %w", name, err)
	}
	m.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("contexts", len(m.counts)),
	)
	return nil
}

// Load replaces both tables of the model with the snapshot saved under name.
// The model is only modified once the whole snapshot has been read; on error it
// keeps its previous tables. A snapshot that records its order also restores it.
func (m *Model) Load(ctx context.Context, store Store, name string) error {
	snap, err := store.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("could not load model '%s': %w", name, err)
	}
	if snap.Counts == nil {
		snap.Counts = make(FrequencyTable)
	}
	if snap.Probabilities == nil {
		snap.Probabilities = make(ProbabilityTable)
	}

	m.counts = snap.Counts
	m.probs = snap.Probabilities
	if snap.Order > 0 {
		m.order = snap.Order
	}

	m.logger.InfoContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("order", m.order),
		slog.Int("contexts", len(m.counts)),
	)
	return nil
}

// Codec encodes the two table artifacts of a FileStore.
type Codec interface {
	// Extension is the file extension, without the dot, for this encoding.
	Extension() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Extension() string                  { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Extension() string                  { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

var (
	// JSONCodec stores tables as JSON objects. Float values round-trip exactly.
	JSONCodec Codec = jsonCodec{}
	// MsgpackCodec stores tables as MessagePack maps.
	MsgpackCodec Codec = msgpackCodec{}
)

// CodecByName returns the codec called "json" or "msgpack".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSONCodec, nil
	case "msgpack", "messagepack":
		return MsgpackCodec, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// FileStore keeps each model as two files in Dir: "{name}.count.{ext}" with the
// frequency table and "{name}.prob.{ext}" with the probability table. Setting
// CountFile and ProbFile pins both file names instead, whatever the model name.
type FileStore struct {
	Dir       string
	Codec     Codec
	CountFile string
	ProbFile  string
}

// NewFileStore returns a JSON FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Codec: JSONCodec}
}

func (s *FileStore) codec() Codec {
	if s.Codec == nil {
		return JSONCodec
	}
	return s.Codec
}

// Paths returns the count and probability file paths used for name.
func (s *FileStore) Paths(name string) (string, string) {
	countFile, probFile := s.CountFile, s.ProbFile
	if countFile == "" || probFile == "" {
		ext := s.codec().Extension()
		countFile = fmt.Sprintf("%s.count.%s", name, ext)
		probFile = fmt.Sprintf("%s.prob.%s", name, ext)
	}
	return filepath.Join(s.Dir, countFile), filepath.Join(s.Dir, probFile)
}

// Save encodes both tables, then writes each file atomically.
func (s *FileStore) Save(ctx context.Context, name string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	codec := s.codec()
	countData, err := codec.Marshal(snap.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode count table: %w", err)
	}
	probData, err := codec.Marshal(snap.Probabilities)
	if err != nil {
		return fmt.Errorf("failed to encode probability table: %w", err)
	}

	if s.Dir != "" {
		if err = os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	countPath, probPath := s.Paths(name)
	if err = atomic.WriteFile(countPath, bytes.NewReader(countData)); err != nil {
		return fmt.Errorf("failed to write %s: %w", countPath, err)
	}
	if err = atomic.WriteFile(probPath, bytes.NewReader(probData)); err != nil {
		return fmt.Errorf("failed to write %s: %w", probPath, err)
	}
	return nil
}

// Load reads and decodes both files. A missing file is reported as ErrModelNotFound.
func (s *FileStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	countPath, probPath := s.Paths(name)

	var snap Snapshot
	if err := s.readTable(countPath, &snap.Counts); err != nil {
		return Snapshot{}, err
	}
	if err := s.readTable(probPath, &snap.Probabilities); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *FileStore) readTable(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err = s.codec().Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
