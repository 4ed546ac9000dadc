package grid

import (
	"github.com/pthm-cable/mlsmpm/mpmerrors"
)

// SparseGrid is a virtual-memory-backed 3D array of GridState cells,
// organized in power-of-two blocks, with a page map tracking which blocks
// are live (spec §4.A). Go has no portable raw page-commit API, so "lazy
// commit" is modeled as lazy allocation of each block's backing slice —
// the address-space reservation spec describes is approximated by
// pre-sizing the page map and block-pointer table to the grid's full
// resolution up front, while the O(block) cell storage itself is allocated
// only on first Allocate. See DESIGN.md for this simplification's rationale.
type SparseGrid struct {
	dims        Dims // block dims (Bx, By, Bz)
	resX, resY, resZ int32 // grid resolution in cells, per axis
	blockBitsX, blockBitsY, blockBitsZ uint

	blocks       []*[]GridState // indexed by block index (not Morton offset)
	offsetToIdx  map[uint64]int
	idxToOffset  []uint64

	pageMap      *PageMap
	rigidPageMap *PageMap

	// budgetBlocks caps how many blocks may be committed, simulating a
	// bounded physical memory budget so ResourceExhausted is reachable
	// (spec §7) instead of vacuous given Go's ordinary heap allocation.
	// 0 means unlimited.
	budgetBlocks int
}

// NewSparseGrid creates a sparse grid covering a resolution of resX x resY x
// resZ cells, organized into blocks of the given power-of-two dims.
func NewSparseGrid(resX, resY, resZ int32, dims Dims, budgetBlocks int) *SparseGrid {
	nbx := (int(resX) + dims.X - 1) / dims.X
	nby := (int(resY) + dims.Y - 1) / dims.Y
	nbz := (int(resZ) + dims.Z - 1) / dims.Z
	maxBlocks := nbx * nby * nbz

	return &SparseGrid{
		dims:         dims,
		resX:         resX,
		resY:         resY,
		resZ:         resZ,
		blockBitsX:   log2(dims.X),
		blockBitsY:   log2(dims.Y),
		blockBitsZ:   log2(dims.Z),
		blocks:       make([]*[]GridState, 0, maxBlocks),
		offsetToIdx:  make(map[uint64]int, maxBlocks/4+1),
		pageMap:      NewPageMap(maxBlocks),
		rigidPageMap: NewPageMap(maxBlocks),
		budgetBlocks: budgetBlocks,
	}
}

func log2(v int) uint {
	n := uint(0)
	for (1 << n) < v {
		n++
	}
	return n
}

// BlockDims returns the block's (Bx, By, Bz).
func (g *SparseGrid) BlockDims() Dims { return g.dims }

// inRange reports whether a cell coordinate lies inside the grid's declared
// resolution.
func (g *SparseGrid) inRange(cx, cy, cz int32) bool {
	return cx >= 0 && cy >= 0 && cz >= 0 && cx < g.resX && cy < g.resY && cz < g.resZ
}

// CoordToBlockOffset returns the Morton block offset owning cell (cx,cy,cz).
func (g *SparseGrid) CoordToBlockOffset(cx, cy, cz int32) uint64 {
	bx := cx >> g.blockBitsX
	by := cy >> g.blockBitsY
	bz := cz >> g.blockBitsZ
	return CoordToBlockOffset(bx, by, bz)
}

// blockOrigin returns the minimum cell coordinate owned by a block offset.
func (g *SparseGrid) blockOrigin(blockOffset uint64) (int32, int32, int32) {
	bx, by, bz := LinearToCoord(blockOffset)
	return bx << g.blockBitsX, by << g.blockBitsY, bz << g.blockBitsZ
}

// BlockOrigin returns the minimum cell coordinate owned by a block offset,
// exported for callers (e.g. engine) that need to translate between a
// block-local cache index and global cell coordinates.
func (g *SparseGrid) BlockOrigin(blockOffset uint64) (int32, int32, int32) {
	return g.blockOrigin(blockOffset)
}

// localIndex returns the block-local cell index for a cell coordinate,
// assuming it belongs to the given block offset.
func (g *SparseGrid) localIndex(blockOffset uint64, cx, cy, cz int32) int {
	ox, oy, oz := g.blockOrigin(blockOffset)
	return blockLocalIndex(g.dims, int(cx-ox), int(cy-oy), int(cz-oz))
}

// IsAllocated reports whether the block at blockOffset is committed.
func (g *SparseGrid) IsAllocated(blockOffset uint64) bool {
	idx, ok := g.offsetToIdx[blockOffset]
	if !ok {
		return false
	}
	return g.pageMap.Get(idx)
}

// Allocate commits backing storage for the block at blockOffset. Returns
// ResourceExhausted if the configured block budget is exceeded.
func (g *SparseGrid) Allocate(blockOffset uint64) error {
	if g.IsAllocated(blockOffset) {
		return nil
	}
	if g.budgetBlocks > 0 && len(g.blocks) >= g.budgetBlocks {
		return mpmerrors.New(mpmerrors.ResourceExhausted, "block budget (%d) exhausted committing offset %d", g.budgetBlocks, blockOffset)
	}

	idx, ok := g.offsetToIdx[blockOffset]
	if !ok {
		idx = len(g.blocks)
		g.offsetToIdx[blockOffset] = idx
		g.idxToOffset = append(g.idxToOffset, blockOffset)
		g.blocks = append(g.blocks, nil)
	}
	cells := make([]GridState, g.dims.Cells())
	g.blocks[idx] = &cells
	g.pageMap.Set(idx, true)
	return nil
}

// EnsureAllocated allocates blockOffset if not already committed.
func (g *SparseGrid) EnsureAllocated(blockOffset uint64) error {
	if g.IsAllocated(blockOffset) {
		return nil
	}
	return g.Allocate(blockOffset)
}

// Cells returns the mutable cell slice for an allocated block. Calling it on
// an unallocated block is a programming error (InternalInvariant) — callers
// must Allocate first.
func (g *SparseGrid) Cells(blockOffset uint64) ([]GridState, error) {
	idx, ok := g.offsetToIdx[blockOffset]
	if !ok || !g.pageMap.Get(idx) {
		return nil, mpmerrors.New(mpmerrors.InternalInvariant, "Cells called on unallocated block %d", blockOffset)
	}
	return *g.blocks[idx], nil
}

var zeroCell GridState

// Get returns a pointer to the GridState at (cx,cy,cz). Out-of-range
// coordinates are fatal (InternalInvariant). If the owning block is not
// allocated, a pointer to a shared zero cell is returned — per spec,
// "cells in uncommitted blocks read as zero" — callers must never write
// through this pointer unless IsAllocated(blockOffset) is true first.
func (g *SparseGrid) Get(cx, cy, cz int32) (*GridState, error) {
	if !g.inRange(cx, cy, cz) {
		return nil, mpmerrors.New(mpmerrors.InternalInvariant, "coordinate (%d,%d,%d) out of range", cx, cy, cz)
	}
	blockOffset := g.CoordToBlockOffset(cx, cy, cz)
	idx, ok := g.offsetToIdx[blockOffset]
	if !ok || !g.pageMap.Get(idx) {
		return &zeroCell, nil
	}
	li := g.localIndex(blockOffset, cx, cy, cz)
	cells := *g.blocks[idx]
	return &cells[li], nil
}

// MarkRigidAware marks the block at blockOffset as containing at least one
// cell near a rigid surface, so the scheduler can dispatch the rigid-aware
// block kernel for it (spec §4.A).
func (g *SparseGrid) MarkRigidAware(blockOffset uint64, v bool) {
	idx, ok := g.offsetToIdx[blockOffset]
	if !ok {
		idx = len(g.blocks)
		g.offsetToIdx[blockOffset] = idx
		g.idxToOffset = append(g.idxToOffset, blockOffset)
		g.blocks = append(g.blocks, nil)
		g.pageMap.Set(idx, false)
	}
	g.rigidPageMap.Set(idx, v)
}

// IsRigidAware reports whether blockOffset was marked rigid-aware.
func (g *SparseGrid) IsRigidAware(blockOffset uint64) bool {
	idx, ok := g.offsetToIdx[blockOffset]
	if !ok {
		return false
	}
	return g.rigidPageMap.Get(idx)
}

// LiveBlocks calls fn for every currently-allocated block offset.
func (g *SparseGrid) LiveBlocks(fn func(blockOffset uint64)) {
	g.pageMap.Live(func(idx int) {
		fn(g.idxToOffset[idx])
	})
}

// LiveBlockCount returns the number of currently-allocated blocks.
func (g *SparseGrid) LiveBlockCount() int { return g.pageMap.Count() }

// ResetBlock zeroes the per-step-rebuilt fields of every cell in an
// allocated block (spec §4.D/§5: done once before Rasterize so write-back
// accumulation across colors starts from a clean baseline).
func (g *SparseGrid) ResetBlock(blockOffset uint64) error {
	cells, err := g.Cells(blockOffset)
	if err != nil {
		return err
	}
	for i := range cells {
		cells[i].Reset()
	}
	return nil
}
