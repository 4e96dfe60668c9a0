package mcmc

import (
	"sync"
	"testing"
)

func TestArchive_AppendCopies(t *testing.T) {
	a := NewArchive()
	vec := []float64{1, 2}
	a.Append(vec)
	vec[0] = 99
	if got := a.Snapshot()[0][0]; got != 1 {
		t.Errorf("archive must copy appended vectors, got %g", got)
	}
}

func TestArchive_SnapshotIsStablePrefix(t *testing.T) {
	a := NewArchive()
	a.Append([]float64{1})
	a.Append([]float64{2})
	snap := a.Snapshot()
	a.Append([]float64{3})
	if len(snap) != 2 {
		t.Errorf("earlier snapshot grew to %d entries", len(snap))
	}
	if a.Len() != 3 {
		t.Errorf("archive length %d, want 3", a.Len())
	}
}

func TestArchive_ConcurrentAppendAndRead(t *testing.T) {
	a := NewArchive()
	const writers = 4
	const perWriter = 250

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				a.Append([]float64{float64(w), float64(i)})
			}
		}(w)
	}

	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	readerWg.Add(1)
	go func() {
		defer readerWg.Done()
		prev := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := a.Snapshot()
			if len(snap) < prev {
				t.Errorf("archive shrank: %d -> %d", prev, len(snap))
				return
			}
			prev = len(snap)
			for _, v := range snap {
				if len(v) != 2 {
					t.Errorf("torn read: entry length %d", len(v))
					return
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	readerWg.Wait()

	if a.Len() != writers*perWriter {
		t.Errorf("archive length %d, want %d", a.Len(), writers*perWriter)
	}
}

func TestNewArchiveFrom(t *testing.T) {
	seed := [][]float64{{1, 2}, {3, 4}}
	a := NewArchiveFrom(seed)
	if a.Len() != 2 {
		t.Fatalf("length %d, want 2", a.Len())
	}
	seed[0][0] = 99
	if a.Snapshot()[0][0] != 1 {
		t.Error("seeding must copy the states")
	}
}
