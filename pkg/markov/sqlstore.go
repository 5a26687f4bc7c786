package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ModelInfo holds the metadata stored for a model in a SQLStore.
type ModelInfo struct {
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// SetupSchema initializes the tables used by SQLStore. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS markov_counts (
    model_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    target TEXT NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (model_id, context, target)
);
`
		schemaProbabilities = `
CREATE TABLE IF NOT EXISTS markov_probabilities (
    model_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    target TEXT NOT NULL,
    probability REAL NOT NULL,
    PRIMARY KEY (model_id, context, target)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}
	if _, err = tx.Exec(schemaCounts); err != nil {
		return fmt.Errorf("could not create counts schema: %w", err)
	}
	if _, err = tx.Exec(schemaProbabilities); err != nil {
		return fmt.Errorf("could not create probabilities schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLStore is a Store backed by a SQL database with the SetupSchema tables.
// Any database/sql SQLite driver can be used.
type SQLStore struct {
	db               *sql.DB
	stmtGetModelInfo *sql.Stmt
	stmtGetModels    *sql.Stmt
	stmtUpsertModel  *sql.Stmt
	stmtGetCounts    *sql.Stmt
	stmtGetProbs     *sql.Stmt
	stmtDeleteCounts *sql.Stmt
	stmtDeleteProbs  *sql.Stmt
	stmtInsertCount  *sql.Stmt
	stmtInsertProb   *sql.Stmt
	stmtDeleteModel  *sql.Stmt
	logger           *slog.Logger
}

// NewSQLStore pre-compiles the store's statements against db. SetupSchema must
// have been run on db first.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModelInfo, `SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, model_order FROM markov_models ORDER BY model_name;`},
		{&s.stmtUpsertModel, `INSERT INTO markov_models (model_name, model_order) VALUES (?, ?) ON CONFLICT(model_name) DO UPDATE SET model_order = excluded.model_order RETURNING model_id;`},
		{&s.stmtGetCounts, `SELECT context, target, frequency FROM markov_counts WHERE model_id = ?;`},
		{&s.stmtGetProbs, `SELECT context, target, probability FROM markov_probabilities WHERE model_id = ?;`},
		{&s.stmtDeleteCounts, `DELETE FROM markov_counts WHERE model_id = ?;`},
		{&s.stmtDeleteProbs, `DELETE FROM markov_probabilities WHERE model_id = ?;`},
		{&s.stmtInsertCount, `INSERT INTO markov_counts (model_id, context, target, frequency) VALUES (?, ?, ?, ?);`},
		{&s.stmtInsertProb, `INSERT INTO markov_probabilities (model_id, context, target, probability) VALUES (?, ?, ?, ?);`},
		{&s.stmtDeleteModel, `DELETE FROM markov_models WHERE model_id = ?;`},
	}
	for _, st := range stmts {
		prepared, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, err
		}
		*st.dst = prepared
	}
	return s, nil
}

// Close releases all prepared statements held by the store.
func (s *SQLStore) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo, s.stmtGetModels, s.stmtUpsertModel,
		s.stmtGetCounts, s.stmtGetProbs, s.stmtDeleteCounts,
		s.stmtDeleteProbs, s.stmtInsertCount, s.stmtInsertProb,
		s.stmtDeleteModel,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// ModelInfo retrieves the metadata of a single model.
func (s *SQLStore) ModelInfo(ctx context.Context, name string) (ModelInfo, error) {
	info := ModelInfo{Name: name}
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.Order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModelInfo{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return ModelInfo{}, err
	}
	return info, nil
}

// List returns the metadata of every stored model, ordered by name.
func (s *SQLStore) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var models []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err = rows.Scan(&info.Id, &info.Name, &info.Order); err != nil {
			return nil, err
		}
		models = append(models, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Save replaces everything stored under name with snap in a single transaction.
func (s *SQLStore) Save(ctx context.Context, name string, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	if err = tx.StmtContext(ctx, s.stmtUpsertModel).QueryRowContext(ctx, name, snap.Order).Scan(&modelID); err != nil {
		return fmt.Errorf("failed to upsert model '%s': %w", name, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteCounts).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to clear counts for model %d: %w", modelID, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteProbs).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to clear probabilities for model %d: %w", modelID, err)
	}

	insertCount := tx.StmtContext(ctx, s.stmtInsertCount)
	for key, targets := range snap.Counts {
		for target, count := range targets {
			if _, err = insertCount.ExecContext(ctx, modelID, key, target, count); err != nil {
				return fmt.Errorf("failed to insert count (%q -> %q): %w", key, target, err)
			}
		}
	}
	insertProb := tx.StmtContext(ctx, s.stmtInsertProb)
	for key, targets := range snap.Probabilities {
		for target, p := range targets {
			if _, err = insertProb.ExecContext(ctx, modelID, key, target, p); err != nil {
				return fmt.Errorf("failed to insert probability (%q -> %q): %w", key, target, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Model stored",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("contexts", len(snap.Counts)),
	)
	return nil
}

// Load reads both tables of a model inside one transaction.
func (s *SQLStore) Load(ctx context.Context, name string) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	snap := Snapshot{
		Counts:        make(FrequencyTable),
		Probabilities: make(ProbabilityTable),
	}
	err = tx.StmtContext(ctx, s.stmtGetModelInfo).QueryRowContext(ctx, name).Scan(&modelID, &snap.Order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return Snapshot{}, fmt.Errorf("failed to query model '%s': %w", name, err)
	}

	countRows, err := tx.StmtContext(ctx, s.stmtGetCounts).QueryContext(ctx, modelID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query counts: %w", err)
	}
	for countRows.Next() {
		var key, target string
		var count int
		if err = countRows.Scan(&key, &target, &count); err != nil {
			_ = countRows.Close()
			return Snapshot{}, fmt.Errorf("failed to scan count row: %w", err)
		}
		targets, ok := snap.Counts[key]
		if !ok {
			targets = make(map[string]int)
			snap.Counts[key] = targets
		}
		targets[target] = count
	}
	_ = countRows.Close()
	if err = countRows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("error after iterating count rows: %w", err)
	}

	probRows, err := tx.StmtContext(ctx, s.stmtGetProbs).QueryContext(ctx, modelID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query probabilities: %w", err)
	}
	for probRows.Next() {
		var key, target string
		var p float64
		if err = probRows.Scan(&key, &target, &p); err != nil {
			_ = probRows.Close()
			return Snapshot{}, fmt.Errorf("failed to scan probability row: %w", err)
		}
		targets, ok := snap.Probabilities[key]
		if !ok {
			targets = make(map[string]float64)
			snap.Probabilities[key] = targets
		}
		targets[target] = p
	}
	_ = probRows.Close()
	if err = probRows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("error after iterating probability rows: %w", err)
	}

	return snap, tx.Commit()
}

// Delete removes a model and all of its rows in one transaction. Deleting a
// missing model is not an error.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	info, err := s.ModelInfo(ctx, name)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return nil
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtDeleteCounts).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove counts for model %d: %w", info.Id, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteProbs).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove probabilities for model %d: %w", info.Id, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteModel).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
	)
	return tx.Commit()
}
