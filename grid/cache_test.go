package grid

import "testing"

func TestCacheLoadWriteBackRoundTrip(t *testing.T) {
	g := NewSparseGrid(16, 16, 16, Dims{4, 4, 4}, 0)
	off := g.CoordToBlockOffset(0, 0, 0)
	if err := g.Allocate(off); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	cell, _ := g.Get(2, 2, 2)
	cell.VelocityAndMass = [4]float32{1, 0, 0, 5}

	cache := NewCache(Dims{4, 4, 4})
	if err := cache.Load(g, off); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cache.At(2, 2, 2).Mass() != 5 {
		t.Errorf("expected loaded mass 5, got %v", cache.At(2, 2, 2).Mass())
	}

	cache.At(0, 0, 0).VelocityAndMass[3] = 9
	if err := cache.WriteBack(g); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	cell, _ = g.Get(0, 0, 0)
	if cell.Mass() != 9 {
		t.Errorf("expected write-back mass 9, got %v", cell.Mass())
	}
}

func TestCacheWriteBackAllocatesNeighborHalo(t *testing.T) {
	g := NewSparseGrid(16, 16, 16, Dims{4, 4, 4}, 0)
	off := g.CoordToBlockOffset(0, 0, 0)
	if err := g.Allocate(off); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	cache := NewCache(Dims{4, 4, 4})
	if err := cache.Load(g, off); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Halo cell at local (4,0,0) maps to global (4,0,0), in the neighbor
	// block at block-grid (1,0,0), not yet allocated.
	cache.At(4, 0, 0).VelocityAndMass[3] = 3
	if err := cache.WriteBack(g); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	neighborOff := g.CoordToBlockOffset(4, 0, 0)
	if !g.IsAllocated(neighborOff) {
		t.Fatalf("expected neighbor block allocated by WriteBack halo touch")
	}
	cell, _ := g.Get(4, 0, 0)
	if cell.Mass() != 3 {
		t.Errorf("expected halo write to land at (4,0,0), got mass %v", cell.Mass())
	}
}

func TestCacheNormalizeDividesByMass(t *testing.T) {
	cache := NewCache(Dims{4, 4, 4})
	cache.At(0, 0, 0).VelocityAndMass = [4]float32{2, 4, 6, 2}
	cache.Normalize(3, 0, [3]float32{})
	v := cache.At(0, 0, 0).VelocityAndMass
	if v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Errorf("expected velocity (1,2,3), got %v", v[:3])
	}
}

func TestCacheNormalizeSkipsZeroMass(t *testing.T) {
	cache := NewCache(Dims{4, 4, 4})
	cache.At(1, 1, 1).VelocityAndMass = [4]float32{0, 0, 0, 0}
	cache.Normalize(3, 1, [3]float32{0, -9.8, 0})
	v := cache.At(1, 1, 1).VelocityAndMass
	if v != ([4]float32{0, 0, 0, 0}) {
		t.Errorf("expected zero-mass cell left untouched, got %v", v)
	}
}

func TestCacheNormalizeAppliesGravity(t *testing.T) {
	cache := NewCache(Dims{4, 4, 4})
	cache.At(0, 0, 0).VelocityAndMass = [4]float32{0, 0, 0, 1}
	cache.Normalize(3, 1e-4, [3]float32{0, -9.8, 0})
	v := cache.At(0, 0, 0).VelocityAndMass
	if v[1] > -9.79e-4 || v[1] < -9.81e-4 {
		t.Errorf("expected vy ~= -9.8e-4, got %v", v[1])
	}
}
