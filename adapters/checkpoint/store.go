// Package checkpoint persists sampler state to a local sqlite file so a
// terminated or cancelled run can be resumed exactly from its last iteration
// boundary: chain states plus the full history archive, keyed by run ID.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gapmend/domain/core"
	"gapmend/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	config     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chain_states (
	run_id    TEXT NOT NULL,
	chain_idx INTEGER NOT NULL,
	iteration INTEGER NOT NULL,
	log_lik   REAL NOT NULL,
	theta     TEXT NOT NULL,
	PRIMARY KEY (run_id, chain_idx)
);
CREATE TABLE IF NOT EXISTS archive_states (
	run_id   TEXT NOT NULL,
	position INTEGER NOT NULL,
	vector   TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// Store implements ports.CheckpointStore on a sqlite file.
type Store struct {
	db *sqlx.DB
}

// Open connects to (or creates) the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize checkpoint schema: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateRun registers a run and its serialized configuration.
func (s *Store) CreateRun(ctx context.Context, runID core.RunID, config []byte) error {
	query := `INSERT INTO runs (id, created_at, config) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config`
	_, err := s.db.ExecContext(ctx, query, runID.String(), time.Now().UTC(), string(config))
	if err != nil {
		return fmt.Errorf("create run %s: %w", runID, err)
	}
	return nil
}

// Save persists a checkpoint, replacing any earlier chain states for the run.
// Archive rows are append-only: positions already present are left untouched,
// mirroring the in-memory archive's contract.
func (s *Store) Save(ctx context.Context, cp ports.Checkpoint) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer tx.Rollback()

	chainQuery := `INSERT INTO chain_states (run_id, chain_idx, iteration, log_lik, theta)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, chain_idx) DO UPDATE SET
			iteration = excluded.iteration,
			log_lik = excluded.log_lik,
			theta = excluded.theta`
	for _, chain := range cp.Chains {
		theta, err := json.Marshal(chain.Theta)
		if err != nil {
			return fmt.Errorf("marshal chain %d state: %w", chain.Index, err)
		}
		if _, err := tx.ExecContext(ctx, chainQuery,
			cp.RunID.String(), chain.Index, cp.Iteration, chain.LogLik, string(theta)); err != nil {
			return fmt.Errorf("save chain %d: %w", chain.Index, err)
		}
	}

	archiveQuery := `INSERT INTO archive_states (run_id, position, vector)
		VALUES (?, ?, ?) ON CONFLICT(run_id, position) DO NOTHING`
	for pos, vec := range cp.Archive {
		payload, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("marshal archive position %d: %w", pos, err)
		}
		if _, err := tx.ExecContext(ctx, archiveQuery, cp.RunID.String(), pos, string(payload)); err != nil {
			return fmt.Errorf("save archive position %d: %w", pos, err)
		}
	}
	return tx.Commit()
}

// Load returns the latest checkpoint for a run.
func (s *Store) Load(ctx context.Context, runID core.RunID) (*ports.Checkpoint, error) {
	type chainRow struct {
		ChainIdx  int     `db:"chain_idx"`
		Iteration int     `db:"iteration"`
		LogLik    float64 `db:"log_lik"`
		Theta     string  `db:"theta"`
	}
	var chains []chainRow
	err := s.db.SelectContext(ctx, &chains,
		`SELECT chain_idx, iteration, log_lik, theta FROM chain_states
		 WHERE run_id = ? ORDER BY chain_idx`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("load chains for run %s: %w", runID, err)
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: run %s", core.ErrCheckpointNotFound, runID)
	}

	cp := &ports.Checkpoint{RunID: runID, Iteration: chains[0].Iteration}
	for _, row := range chains {
		var theta []float64
		if err := json.Unmarshal([]byte(row.Theta), &theta); err != nil {
			return nil, fmt.Errorf("decode chain %d state: %w", row.ChainIdx, err)
		}
		cp.Chains = append(cp.Chains, ports.ChainSnapshot{
			Index:  row.ChainIdx,
			Theta:  theta,
			LogLik: row.LogLik,
		})
	}

	type archiveRow struct {
		Position int    `db:"position"`
		Vector   string `db:"vector"`
	}
	var rows []archiveRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT position, vector FROM archive_states
		 WHERE run_id = ? ORDER BY position`, runID.String())
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load archive for run %s: %w", runID, err)
	}
	for _, row := range rows {
		var vec []float64
		if err := json.Unmarshal([]byte(row.Vector), &vec); err != nil {
			return nil, fmt.Errorf("decode archive position %d: %w", row.Position, err)
		}
		cp.Archive = append(cp.Archive, vec)
	}
	return cp, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
