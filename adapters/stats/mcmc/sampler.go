// Package mcmc implements the population MCMC sampler that drives the
// reconstruction posterior: differential-evolution proposals drawn from a
// shared, growing history archive (DEzs), with occasional snooker moves for
// better mixing in high dimension, plus the convergence diagnostics computed
// over its output.
package mcmc

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"gapmend/domain/core"
	"gapmend/domain/series"
)

// Evaluator scores a candidate vector. Implementations must be pure: no
// internal randomness, same input produces the same score.
type Evaluator interface {
	Evaluate(theta []float64) (float64, error)
	Dim() int
}

// Checkpointer persists sampler state at an iteration boundary. Called between
// segments with the chains' current states and the full archive contents.
type Checkpointer interface {
	Checkpoint(ctx context.Context, iteration int, chains []ChainState, archive [][]float64) error
}

// ChainState is one chain's current position and its cached log-likelihood.
type ChainState struct {
	Theta  []float64
	LogLik float64
}

// Clone deep-copies the state.
func (c ChainState) Clone() ChainState {
	theta := make([]float64, len(c.Theta))
	copy(theta, c.Theta)
	return ChainState{Theta: theta, LogLik: c.LogLik}
}

// Config controls a sampling run.
type Config struct {
	Chains          int
	Iterations      int
	ThinningFactor  int     // archive-append and draw-retention stride
	SnookerProb     float64 // probability of a snooker move instead of a difference move
	Seed            int64
	StartIteration  int // nonzero when resuming from a checkpoint
	CheckpointEvery int // iteration-boundary stride for Checkpointer calls; 0 disables
}

// Validate applies the eager config checks of the error taxonomy.
func (c Config) Validate() error {
	if c.Chains <= 0 {
		return core.NewConfigError("chainCount", "must be positive")
	}
	if c.Iterations <= 0 {
		return core.NewConfigError("iterationCount", "must be positive")
	}
	if c.ThinningFactor <= 0 {
		return core.NewConfigError("thinningFactor", "must be positive")
	}
	if c.SnookerProb < 0 || c.SnookerProb > 1 {
		return core.NewConfigError("snookerProb", "must be in [0, 1]")
	}
	return nil
}

// Result is the output of a sampling run. Draws hold each chain's retained
// states (every ThinningFactor iterations) and feed both the convergence
// diagnostics and the posterior summary.
type Result struct {
	Chains     []ChainState
	Draws      [][][]float64 // [chain][draw][parameter]
	Iterations int           // iterations completed in this run
	Accepted   []int
	Proposed   []int
}

// Sampler runs the DEzs population MCMC. Chains are parallel; the archive is
// the only shared state.
type Sampler struct {
	eval    Evaluator
	bounds  series.PriorBounds
	cfg     Config
	archive *Archive
	ckpt    Checkpointer
}

// NewSampler wires a sampler. checkpointer may be nil.
func NewSampler(eval Evaluator, bounds series.PriorBounds, cfg Config, checkpointer Checkpointer) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if bounds.Len() != eval.Dim() {
		return nil, core.NewConfigError("bounds", fmt.Sprintf("dimension %d, evaluator expects %d", bounds.Len(), eval.Dim()))
	}
	return &Sampler{eval: eval, bounds: bounds, cfg: cfg, ckpt: checkpointer}, nil
}

// Archive exposes the shared history after a run, for checkpointing and tests.
func (s *Sampler) Archive() *Archive { return s.archive }

// Run executes the configured iteration budget. A nil start initializes every
// chain uniformly inside the prior box and seeds the archive with the initial
// states; a non-nil start (from a checkpoint) resumes with the given states
// and archive contents.
//
// Cancellation is cooperative: the context is checked between iterations, and
// a cancelled run returns the draws retained so far together with ctx's error.
// A likelihood failure aborts the whole run with a diagnostic naming the term,
// chain and iteration.
func (s *Sampler) Run(ctx context.Context, start []ChainState, archiveSeed [][]float64) (*Result, error) {
	chains, err := s.initChains(start)
	if err != nil {
		return nil, err
	}

	if len(archiveSeed) > 0 {
		s.archive = NewArchiveFrom(archiveSeed)
	} else {
		s.archive = NewArchive()
		for _, c := range chains {
			s.archive.Append(c.Theta)
		}
	}

	res := &Result{
		Chains:   chains,
		Draws:    make([][][]float64, s.cfg.Chains),
		Accepted: make([]int, s.cfg.Chains),
		Proposed: make([]int, s.cfg.Chains),
	}

	segment := s.cfg.CheckpointEvery
	if segment <= 0 {
		segment = s.cfg.Iterations
	}

	done := 0
	for done < s.cfg.Iterations {
		n := segment
		if done+n > s.cfg.Iterations {
			n = s.cfg.Iterations - done
		}

		g, gctx := errgroup.WithContext(ctx)
		for idx := range chains {
			idx := idx
			startIter := s.cfg.StartIteration + done
			g.Go(func() error {
				return s.runChain(gctx, idx, startIter, n, res)
			})
		}
		if err := g.Wait(); err != nil {
			res.Iterations = done
			return res, err
		}
		done += n
		res.Iterations = done

		if s.ckpt != nil {
			if err := s.ckpt.Checkpoint(ctx, s.cfg.StartIteration+done, res.Chains, s.archive.Snapshot()); err != nil {
				return res, fmt.Errorf("checkpoint at iteration %d: %w", s.cfg.StartIteration+done, err)
			}
		}
	}
	return res, nil
}

// initChains validates resumed states or draws fresh ones inside the box.
func (s *Sampler) initChains(start []ChainState) ([]ChainState, error) {
	if start != nil {
		if len(start) != s.cfg.Chains {
			return nil, core.NewConfigError("chainCount", fmt.Sprintf("checkpoint has %d chains, config wants %d", len(start), s.cfg.Chains))
		}
		chains := make([]ChainState, len(start))
		for i, c := range start {
			if len(c.Theta) != s.eval.Dim() {
				return nil, core.NewDataError(fmt.Sprintf("checkpoint chain %d has dimension %d, expected %d", i, len(c.Theta), s.eval.Dim()))
			}
			chains[i] = c.Clone()
		}
		return chains, nil
	}

	chains := make([]ChainState, s.cfg.Chains)
	for i := range chains {
		// Distinct stream from the proposal RNG of the same chain.
		rng := rand.New(rand.NewSource(s.cfg.Seed + int64(i)*1000003 + 500009))
		theta := make([]float64, s.bounds.Len())
		for j := range theta {
			width := s.bounds.Up[j] - s.bounds.Low[j]
			theta[j] = s.bounds.Low[j] + rng.Float64()*width
		}
		ll, err := s.eval.Evaluate(theta)
		if err != nil {
			return nil, fmt.Errorf("chain %d, initialization: %w", i, err)
		}
		chains[i] = ChainState{Theta: theta, LogLik: ll}
	}
	return chains, nil
}

// chainRNG derives a deterministic per-chain generator. Resumed runs reseed
// from (seed, chain, start iteration); single-chain trajectories are
// reproducible for a fixed seed, multi-chain runs are reproducible up to
// archive append order, which parallel execution does not fix.
func (s *Sampler) chainRNG(chain, startIter int) *rand.Rand {
	return rand.New(rand.NewSource(s.cfg.Seed + int64(chain)*1000003 + int64(startIter)*7919))
}

// runChain advances one chain by n iterations.
func (s *Sampler) runChain(ctx context.Context, idx, startIter, n int, res *Result) error {
	rng := s.chainRNG(idx, startIter)
	cur := &res.Chains[idx]

	for it := 0; it < n; it++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		iteration := startIter + it

		cand, snookerCorr, ok := s.propose(cur.Theta, rng)
		res.Proposed[idx]++
		if ok && s.bounds.Contains(cand) {
			candLL, err := s.eval.Evaluate(cand)
			if err != nil {
				return fmt.Errorf("chain %d, iteration %d: %w", idx, iteration, err)
			}
			logAlpha := candLL - cur.LogLik + snookerCorr
			if logAlpha >= 0 || rng.Float64() < math.Exp(logAlpha) {
				copy(cur.Theta, cand)
				cur.LogLik = candLL
				res.Accepted[idx]++
			}
		}
		// An out-of-box proposal has zero prior density: automatic reject,
		// likelihood never evaluated.

		if (iteration+1)%s.cfg.ThinningFactor == 0 {
			s.archive.Append(cur.Theta)
			draw := make([]float64, len(cur.Theta))
			copy(draw, cur.Theta)
			res.Draws[idx] = append(res.Draws[idx], draw)
		}
	}
	return nil
}

// propose builds a DEzs candidate. Returns the candidate, the snooker
// Metropolis correction (zero for difference moves) and whether a usable
// proposal could be formed from the current archive.
func (s *Sampler) propose(cur []float64, rng *rand.Rand) ([]float64, float64, bool) {
	snap := s.archive.Snapshot()
	if len(snap) < 2 {
		return nil, 0, false
	}
	if rng.Float64() < s.cfg.SnookerProb && len(snap) >= 3 {
		if cand, corr, ok := s.snookerMove(cur, snap, rng); ok {
			return cand, corr, true
		}
	}
	return s.differenceMove(cur, snap, rng), 0, true
}

// differenceMove: candidate = current + gamma*(1+e)*(z1 - z2) + eps, with z1,
// z2 drawn with replacement from the archive. gamma is the standard
// 2.38/sqrt(2d) step scale, with an occasional full-length jump to let chains
// traverse between modes.
func (s *Sampler) differenceMove(cur []float64, snap [][]float64, rng *rand.Rand) []float64 {
	d := len(cur)
	z1 := snap[rng.Intn(len(snap))]
	z2 := snap[rng.Intn(len(snap))]

	gamma := 2.38 / math.Sqrt(2*float64(d))
	if rng.Float64() < 0.1 {
		gamma = 1.0
	}
	cand := make([]float64, d)
	for j := 0; j < d; j++ {
		e := (rng.Float64() - 0.5) * 0.1
		eps := rng.NormFloat64() * 1e-6
		cand[j] = cur[j] + gamma*(1+e)*(z1[j]-z2[j]) + eps
	}
	return cand
}

// snookerMove projects two archive states onto the line from the current
// state through a third archive state and steps along that direction with a
// random factor in [1.2, 2.2]. The returned correction is the Jacobian term
// (d-1)*log(|x*-z|/|x-z|) the snooker kernel needs for detailed balance.
func (s *Sampler) snookerMove(cur []float64, snap [][]float64, rng *rand.Rand) ([]float64, float64, bool) {
	d := len(cur)
	z := snap[rng.Intn(len(snap))]
	z1 := snap[rng.Intn(len(snap))]
	z2 := snap[rng.Intn(len(snap))]

	var norm2 float64
	u := make([]float64, d)
	for j := 0; j < d; j++ {
		u[j] = cur[j] - z[j]
		norm2 += u[j] * u[j]
	}
	if norm2 < 1e-300 {
		return nil, 0, false
	}

	var dot float64
	for j := 0; j < d; j++ {
		dot += (z1[j] - z2[j]) * u[j]
	}
	gammaS := 1.2 + rng.Float64()
	step := gammaS * dot / norm2

	cand := make([]float64, d)
	var candNorm2 float64
	for j := 0; j < d; j++ {
		cand[j] = cur[j] + step*u[j]
		dz := cand[j] - z[j]
		candNorm2 += dz * dz
	}
	if candNorm2 < 1e-300 {
		return nil, 0, false
	}
	corr := float64(d-1) * 0.5 * (math.Log(candNorm2) - math.Log(norm2))
	return cand, corr, true
}
