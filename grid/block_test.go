package grid

import "testing"

func TestMortonRoundTrip(t *testing.T) {
	cases := [][3]int32{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{5, 3, 9},
		{100, 200, 300},
		{1023, 1023, 1023},
	}
	for _, c := range cases {
		off := CoordToBlockOffset(c[0], c[1], c[2])
		bx, by, bz := LinearToCoord(off)
		if bx != c[0] || by != c[1] || bz != c[2] {
			t.Errorf("round trip %v -> offset %d -> (%d,%d,%d)", c, off, bx, by, bz)
		}
	}
}

func TestMortonDistinctOffsets(t *testing.T) {
	seen := map[uint64]bool{}
	for x := int32(0); x < 8; x++ {
		for y := int32(0); y < 8; y++ {
			for z := int32(0); z < 8; z++ {
				off := CoordToBlockOffset(x, y, z)
				if seen[off] {
					t.Fatalf("collision at (%d,%d,%d) -> offset %d", x, y, z, off)
				}
				seen[off] = true
			}
		}
	}
}

func TestBlockLocalIndexOrder(t *testing.T) {
	dims := Dims{4, 4, 4}
	if blockLocalIndex(dims, 0, 0, 0) != 0 {
		t.Errorf("expected origin index 0")
	}
	if blockLocalIndex(dims, 1, 0, 0) != 1 {
		t.Errorf("expected x-stride 1")
	}
	if blockLocalIndex(dims, 0, 1, 0) != 4 {
		t.Errorf("expected y-stride Bx=4")
	}
	if blockLocalIndex(dims, 0, 0, 1) != 16 {
		t.Errorf("expected z-stride Bx*By=16")
	}
}
