package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gapmend/adapters/stats/likelihood"
	"gapmend/adapters/stats/mcmc"
	"gapmend/adapters/stats/posterior"
	"gapmend/adapters/stats/prep"
	"gapmend/domain/core"
	"gapmend/domain/series"
	"gapmend/internal"
	"gapmend/internal/config"
	"gapmend/ports"
)

// ReconstructionService runs the full gap-filling pipeline: reference
// construction, likelihood setup, population MCMC, convergence diagnostics
// and posterior summarization.
type ReconstructionService struct {
	cfg    config.Config
	store  ports.CheckpointStore // nil disables checkpointing
	logger *internal.Logger
}

// ReconstructionRequest defines the inputs for one reconstruction run.
type ReconstructionRequest struct {
	Fine   *series.Series // fine-resolution gapped record
	Sparse *series.Series // independently calibrated sparse references
	RunID  core.RunID     // optional; generated if empty
	Resume bool           // continue from the run's last checkpoint
}

// ReconstructionResult contains the complete output of a run.
type ReconstructionResult struct {
	RunID      core.RunID
	Grid       series.TimeGrid
	Summary    *posterior.Summary
	Rows       []ports.ReconstructionRow
	Rhat       []float64
	Warnings   []string
	Iterations int
	RuntimeMs  int64
}

// NewReconstructionService creates a reconstruction service. store may be nil.
func NewReconstructionService(cfg config.Config, store ports.CheckpointStore, logger *internal.Logger) *ReconstructionService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ReconstructionService{cfg: cfg, store: store, logger: logger}
}

// Run executes a reconstruction. Data and configuration problems surface
// before any sampling starts; a numeric failure during sampling aborts the
// run with a diagnostic naming the term, chain and iteration. Convergence
// problems do not fail the run; they are reported in Warnings.
func (s *ReconstructionService) Run(ctx context.Context, req ReconstructionRequest) (*ReconstructionResult, error) {
	startTime := time.Now()

	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if req.Fine == nil || req.Sparse == nil {
		return nil, core.NewDataError("both measurement tables are required")
	}

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}

	refs, bounds, err := s.buildReferences(req.Fine, req.Sparse)
	if err != nil {
		return nil, err
	}
	s.logger.Info("references built: grid=%d complete=%d sparse=%d acf_lags=%d",
		refs.Grid.Len(), len(refs.Complete), len(refs.Sparse), len(refs.ACF))

	engine, err := likelihood.NewEngine(refs, likelihood.Params{
		DiscreteHalfWidth: s.cfg.DiscreteHalfWidthYears,
		RollingWindow:     s.cfg.RollingWindowPoints(),
		ErrSd:             s.cfg.AnalyticErrorSd,
		ACFSd:             s.cfg.AutocorrelationSd,
	})
	if err != nil {
		return nil, err
	}

	samplerCfg := mcmc.Config{
		Chains:          s.cfg.ChainCount,
		Iterations:      s.cfg.IterationCount,
		ThinningFactor:  s.cfg.ThinningFactor,
		SnookerProb:     s.cfg.SnookerProbability,
		Seed:            s.cfg.RandomSeed,
		CheckpointEvery: s.cfg.CheckpointEvery,
	}

	var start []mcmc.ChainState
	var archiveSeed [][]float64
	if req.Resume {
		if s.store == nil {
			return nil, core.NewConfigError("checkpointPath", "resume requested without a checkpoint store")
		}
		cp, err := s.store.Load(ctx, runID)
		if err != nil {
			return nil, err
		}
		samplerCfg.StartIteration = cp.Iteration
		archiveSeed = cp.Archive
		for _, c := range cp.Chains {
			start = append(start, mcmc.ChainState{Theta: c.Theta, LogLik: c.LogLik})
		}
		s.logger.Info("resuming run %s from iteration %d (archive %d)", runID, cp.Iteration, len(cp.Archive))
	}

	var checkpointer mcmc.Checkpointer
	if s.store != nil {
		cfgJSON, err := json.Marshal(s.cfg)
		if err != nil {
			return nil, fmt.Errorf("serialize config: %w", err)
		}
		if err := s.store.CreateRun(ctx, runID, cfgJSON); err != nil {
			return nil, err
		}
		checkpointer = &storeCheckpointer{store: s.store, runID: runID}
		if samplerCfg.CheckpointEvery <= 0 {
			samplerCfg.CheckpointEvery = defaultCheckpointEvery(samplerCfg.Iterations)
		}
	}

	sampler, err := mcmc.NewSampler(engine, bounds, samplerCfg, checkpointer)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sampling run %s: %d chains x %d iterations, dim %d",
		runID, samplerCfg.Chains, samplerCfg.Iterations, engine.Dim())
	runRes, err := sampler.Run(ctx, start, archiveSeed)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	result := &ReconstructionResult{
		RunID:      runID,
		Grid:       refs.Grid,
		Iterations: runRes.Iterations,
	}

	if samplerCfg.Chains >= 2 {
		rhat, err := mcmc.Rhat(runRes.Draws)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("convergence diagnostics unavailable: %v", err))
		} else {
			result.Rhat = rhat
			if max, above := mcmc.MaxRhat(rhat); above {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("convergence warning: max Rhat %.3f exceeds %.1f", max, mcmc.RhatThreshold))
			}
		}
	} else {
		result.Warnings = append(result.Warnings, "convergence diagnostics skipped: single chain")
	}

	summary, err := posterior.Summarize(runRes.Draws, s.cfg.BurnInFraction, s.cfg.QuantileGrid())
	if err != nil {
		return nil, err
	}
	result.Summary = summary

	result.Rows = make([]ports.ReconstructionRow, refs.Grid.Len())
	for i := 0; i < refs.Grid.Len(); i++ {
		lower, upper := summary.Band(i)
		result.Rows[i] = ports.ReconstructionRow{
			Time:  refs.Grid.Times[i],
			Value: summary.Median(i),
			Lower: lower,
			Upper: upper,
		}
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("run %s finished: %d iterations in %dms, %d warnings",
		runID, result.Iterations, result.RuntimeMs, len(result.Warnings))
	return result, nil
}

// buildReferences runs the prep stage: grid, gap mask, reference profile,
// sparse binning, autocorrelation reference and prior bounds.
func (s *ReconstructionService) buildReferences(fine, sparse *series.Series) (likelihood.References, series.PriorBounds, error) {
	fineStart, fineEnd := fine.Span()
	sparseStart, sparseEnd := sparse.Span()
	start := fineStart
	if sparseStart < start {
		start = sparseStart
	}
	end := fineEnd
	if sparseEnd > end {
		end = sparseEnd
	}

	grid, err := prep.BuildGrid(start, end, s.cfg.GridStepYears)
	if err != nil {
		return likelihood.References{}, series.PriorBounds{}, err
	}

	complete, err := prep.CompletePositions(fine, grid, s.cfg.GapThresholdYears)
	if err != nil {
		return likelihood.References{}, series.PriorBounds{}, err
	}

	profile, err := prep.Profile(fine, grid, s.cfg.RollingWindowPoints())
	if err != nil {
		return likelihood.References{}, series.PriorBounds{}, err
	}

	points, err := prep.BinSparse(sparse, grid, s.cfg.DiscreteHalfWidthYears)
	if err != nil {
		return likelihood.References{}, series.PriorBounds{}, err
	}

	maxLag := s.cfg.AutocorrelationLagSpan
	if maxLag >= grid.Len() {
		maxLag = grid.Len() - 1
	}
	acfRef, err := prep.ACFReference(fine, grid, maxLag, s.cfg.GapThresholdYears)
	if err != nil {
		return likelihood.References{}, series.PriorBounds{}, err
	}

	bounds, err := series.NewPriorBounds(profile, s.cfg.PriorWidthMultiplier)
	if err != nil {
		return likelihood.References{}, series.PriorBounds{}, err
	}

	refs := likelihood.References{
		Grid:     grid,
		Sparse:   points,
		Profile:  profile,
		Complete: complete,
		ACF:      acfRef,
	}
	return refs, bounds, nil
}

// storeCheckpointer adapts ports.CheckpointStore to the sampler's boundary
// callback.
type storeCheckpointer struct {
	store ports.CheckpointStore
	runID core.RunID
}

func (c *storeCheckpointer) Checkpoint(ctx context.Context, iteration int, chains []mcmc.ChainState, archive [][]float64) error {
	cp := ports.Checkpoint{
		RunID:     c.runID,
		Iteration: iteration,
		Archive:   archive,
	}
	for i, chain := range chains {
		cp.Chains = append(cp.Chains, ports.ChainSnapshot{
			Index:  i,
			Theta:  chain.Theta,
			LogLik: chain.LogLik,
		})
	}
	return c.store.Save(ctx, cp)
}

func defaultCheckpointEvery(iterations int) int {
	every := iterations / 10
	if every < 1 {
		every = 1
	}
	return every
}
