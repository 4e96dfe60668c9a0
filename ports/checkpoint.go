package ports

import (
	"context"

	"gapmend/domain/core"
)

// ChainSnapshot is one chain's persisted state at an iteration boundary.
type ChainSnapshot struct {
	Index  int
	Theta  []float64
	LogLik float64
}

// Checkpoint is the full resumable state of a sampling run: chain states plus
// the history archive as of a given iteration.
type Checkpoint struct {
	RunID     core.RunID
	Iteration int
	Chains    []ChainSnapshot
	Archive   [][]float64
}

// CheckpointStore persists run checkpoints. A run saved at iteration boundary
// K can seed a new run continuing from K; the combined posterior is
// statistically equivalent to a single longer run.
type CheckpointStore interface {
	// CreateRun registers a run and its serialized configuration.
	CreateRun(ctx context.Context, runID core.RunID, config []byte) error

	// Save persists a checkpoint, replacing any earlier one for the run.
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the latest checkpoint for a run, or
	// core.ErrCheckpointNotFound.
	Load(ctx context.Context, runID core.RunID) (*Checkpoint, error)

	Close() error
}
