package mcmc

import (
	"sync"
	"sync/atomic"
)

// Archive is the shared history of past chain states that differential
// evolution proposals draw from. It is append-only for the duration of a run:
// entries are never removed or mutated once added.
//
// Concurrency contract: appends are mutually excluded; reads are lock-free and
// see a consistent prefix. Readers load a published slice header whose length
// never covers an in-flight append, so a snapshot taken while another chain
// appends is always a valid prefix of the archive. Cross-chain append order is
// unordered by design and does not affect correctness.
type Archive struct {
	mu   sync.Mutex
	data [][]float64
	view atomic.Pointer[[][]float64]
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{}
}

// NewArchiveFrom seeds an archive with existing states, e.g. when resuming a
// run from a checkpoint. The vectors are copied.
func NewArchiveFrom(states [][]float64) *Archive {
	a := &Archive{}
	for _, s := range states {
		a.Append(s)
	}
	return a
}

// Append adds a copy of vec to the archive.
func (a *Archive) Append(vec []float64) {
	cp := make([]float64, len(vec))
	copy(cp, vec)

	a.mu.Lock()
	a.data = append(a.data, cp)
	view := a.data
	a.view.Store(&view)
	a.mu.Unlock()
}

// Snapshot returns a consistent prefix of the archive. The returned slice and
// its entries must not be mutated.
func (a *Archive) Snapshot() [][]float64 {
	p := a.view.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Len returns the current archive length. Monotonically non-decreasing.
func (a *Archive) Len() int {
	return len(a.Snapshot())
}
