package grid

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestForEachBlockVisitsAllLiveBlocks(t *testing.T) {
	g := NewSparseGrid(32, 32, 32, Dims{4, 4, 4}, 0)
	var offs []uint64
	for bx := int32(0); bx < 3; bx++ {
		for by := int32(0); by < 3; by++ {
			off := g.CoordToBlockOffset(bx*4, by*4, 0)
			if err := g.Allocate(off); err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			offs = append(offs, off)
		}
	}

	sched := NewScheduler(4)
	var visited int64
	err := sched.ForEachBlock(g, true, func(blockIndex int, blockOffset uint64, cells []GridState) error {
		atomic.AddInt64(&visited, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachBlock returned error: %v", err)
	}
	if int(visited) != len(offs) {
		t.Fatalf("expected %d blocks visited, got %d", len(offs), visited)
	}
}

func TestForEachBlockColoringNoOverlap(t *testing.T) {
	// Two face-adjacent blocks must never run concurrently under
	// touchHaloWrite=true, since their 3x3x3 neighborhoods overlap.
	g := NewSparseGrid(32, 32, 32, Dims{4, 4, 4}, 0)
	offA := g.CoordToBlockOffset(0, 0, 0)
	offB := g.CoordToBlockOffset(4, 0, 0)
	if err := g.Allocate(offA); err != nil {
		t.Fatal(err)
	}
	if err := g.Allocate(offB); err != nil {
		t.Fatal(err)
	}

	sched := NewScheduler(4)
	var mu sync.Mutex
	active := map[uint64]bool{}
	violated := false

	err := sched.ForEachBlock(g, true, func(blockIndex int, blockOffset uint64, cells []GridState) error {
		mu.Lock()
		for other := range active {
			if other != blockOffset && adjacent(blockOffset, other) {
				violated = true
			}
		}
		active[blockOffset] = true
		mu.Unlock()

		mu.Lock()
		delete(active, blockOffset)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachBlock: %v", err)
	}
	if violated {
		t.Fatalf("expected adjacent blocks never concurrently active under coloring")
	}
}

func adjacent(a, b uint64) bool {
	ax, ay, az := LinearToCoord(a)
	bx, by, bz := LinearToCoord(b)
	dx, dy, dz := abs32(ax-bx), abs32(ay-by), abs32(az-bz)
	return dx <= 1 && dy <= 1 && dz <= 1
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestForEachBlockAggregatesErrors(t *testing.T) {
	g := NewSparseGrid(32, 32, 32, Dims{4, 4, 4}, 0)
	off := g.CoordToBlockOffset(0, 0, 0)
	if err := g.Allocate(off); err != nil {
		t.Fatal(err)
	}
	sched := NewScheduler(2)
	err := sched.ForEachBlock(g, false, func(blockIndex int, blockOffset uint64, cells []GridState) error {
		return errBoom
	})
	if err == nil {
		t.Fatalf("expected aggregated error to propagate")
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
