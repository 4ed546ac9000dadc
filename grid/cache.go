package grid

import "github.com/pthm-cable/mlsmpm/mpmerrors"

// Cache is a block-local scratch copy of GridState used to perform all
// scatter/gather for particles in a block without cross-block atomics
// (spec §4.D). Its size is (Bx+2)x(By+2)x(Bz+2): particles owned by a block
// have their MLS base cell inside [0,Bx)x[0,By)x[0,Bz), and the 3-wide
// stencil (offsets 0,1,2 from base) extends at most 2 cells past the
// block's own extent, entirely on the high side of each axis — hence the
// "+2", not a symmetric halo.
//
// The same struct backs both the full-GridState path (rigid-aware blocks,
// which need states/distance for the coloring test) and the momentum-only
// fast path (pure blocks): callers that only care about VelocityAndMass use
// the Momentum* accessors and never touch the rest of the cell, which is
// the Go-idiomatic stand-in for the spec's two templated cache variants —
// one struct, a narrower access pattern, rather than a second type.
type Cache struct {
	dims    Dims // owning block's dims (Bx, By, Bz)
	halo    Dims // dims + 2 on each axis
	scratch []GridState
	origin  [3]int32 // owning block's cell-space origin, set by Load
}

// NewCache allocates a cache scratch buffer sized for blocks of dims.
func NewCache(dims Dims) *Cache {
	halo := Dims{dims.X + 2, dims.Y + 2, dims.Z + 2}
	return &Cache{
		dims:    dims,
		halo:    halo,
		scratch: make([]GridState, halo.Cells()),
	}
}

func (c *Cache) localIdx(lx, ly, lz int) int {
	return blockLocalIndex(c.halo, lx, ly, lz)
}

// Load reads the block at blockOffset plus its high-side halo from g into
// the scratch buffer. Halo cells past the grid's resolution are loaded as
// zero cells; WriteBack rejects any of them that was written to.
func (c *Cache) Load(g *SparseGrid, blockOffset uint64) error {
	ox, oy, oz := g.blockOrigin(blockOffset)
	c.origin = [3]int32{ox, oy, oz}

	for lz := 0; lz < c.halo.Z; lz++ {
		for ly := 0; ly < c.halo.Y; ly++ {
			for lx := 0; lx < c.halo.X; lx++ {
				gx, gy, gz := ox+int32(lx), oy+int32(ly), oz+int32(lz)
				if !g.inRange(gx, gy, gz) {
					c.scratch[c.localIdx(lx, ly, lz)] = GridState{}
					continue
				}
				cell, err := g.Get(gx, gy, gz)
				if err != nil {
					return mpmerrors.Wrap(mpmerrors.InternalInvariant, err, "stencil halo escaped allocated region at block %d", blockOffset)
				}
				c.scratch[c.localIdx(lx, ly, lz)] = *cell
			}
		}
	}
	return nil
}

// WriteBack writes the scratch buffer back to g, allocating any touched
// neighbor block that isn't yet committed. Cells outside any particle's
// stencil are written back unchanged from what Load read, so this is safe
// to call unconditionally after a Rasterize pass. Halo cells past the
// grid's resolution are skipped while still zero; one that a stencil wrote
// to is an InternalInvariant error.
func (c *Cache) WriteBack(g *SparseGrid) error {
	for lz := 0; lz < c.halo.Z; lz++ {
		for ly := 0; ly < c.halo.Y; ly++ {
			for lx := 0; lx < c.halo.X; lx++ {
				gx := c.origin[0] + int32(lx)
				gy := c.origin[1] + int32(ly)
				gz := c.origin[2] + int32(lz)
				if !g.inRange(gx, gy, gz) {
					if c.scratch[c.localIdx(lx, ly, lz)] == (GridState{}) {
						continue
					}
					return mpmerrors.New(mpmerrors.InternalInvariant, "write-back escaped grid at (%d,%d,%d)", gx, gy, gz)
				}
				blockOffset := g.CoordToBlockOffset(gx, gy, gz)
				if err := g.EnsureAllocated(blockOffset); err != nil {
					return err
				}
				cell, err := g.Get(gx, gy, gz)
				if err != nil {
					return err
				}
				*cell = c.scratch[c.localIdx(lx, ly, lz)]
			}
		}
	}
	return nil
}

// At returns a pointer to the scratch cell at local coordinate (lx,ly,lz),
// where a particle's own base cell occupies [0,Bx)x[0,By)x[0,Bz) and the
// stencil may read/write up to lx+2, ly+2, lz+2.
func (c *Cache) At(lx, ly, lz int) *GridState {
	return &c.scratch[c.localIdx(lx, ly, lz)]
}

// MomentumAt returns the VelocityAndMass lane for the momentum-only fast
// path, avoiding touching the rest of the cell.
func (c *Cache) MomentumAt(lx, ly, lz int) *[4]float32 {
	return &c.scratch[c.localIdx(lx, ly, lz)].VelocityAndMass
}

// Normalize divides each cell's momentum lanes by its mass lane wherever
// mass > 0 (the post-rasterize normalization step between P2G and G2P,
// spec §4.E/"Post-rasterize normalization"). gravity is added after the
// divide, scaled by dt, to the first dim lanes.
func (c *Cache) Normalize(dim int, dt float32, gravity [3]float32) {
	for i := range c.scratch {
		cell := &c.scratch[i]
		m := cell.VelocityAndMass[3]
		if m <= 0 {
			continue
		}
		inv := 1 / m
		for a := 0; a < dim; a++ {
			cell.VelocityAndMass[a] = cell.VelocityAndMass[a]*inv + gravity[a]*dt
		}
	}
}
