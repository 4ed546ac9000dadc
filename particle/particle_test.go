package particle

import "testing"

func TestNewMPMParticleIsIdentityAtRest(t *testing.T) {
	p := NewMPMParticle([3]float32{1, 2, 3}, 0.5, 1e-3, TagSnow)
	if p.DgE != Identity3() || p.DgP != Identity3() || p.DgT != Identity3() {
		t.Fatalf("expected identity deformation gradients at rest, got %+v", p)
	}
	if p.Jp != 1 {
		t.Fatalf("expected Jp=1 at rest, got %v", p.Jp)
	}
	if p.Velocity != ([3]float32{}) {
		t.Fatalf("expected zero velocity at rest, got %v", p.Velocity)
	}
}

func TestSideTagRoundTripsThroughParticle(t *testing.T) {
	var p MPMParticle
	p.SetSideTag(5, 1)
	if got := p.SideTag(5); got != 1 {
		t.Fatalf("SideTag(5) = %d, want 1", got)
	}
	if got := p.SideTag(0); got != 0 {
		t.Fatalf("SideTag(0) = %d, want 0", got)
	}
}

func TestCutMaskAndOppositeSide(t *testing.T) {
	var p MPMParticle
	p.SetSideTag(2, 3) // active, side 1

	gridStates := p.States &^ (1 << 4) // same "active" bit, opposite side bit
	mask := p.CutMask(gridStates)
	if mask == 0 {
		t.Fatalf("expected rigid 2 in cut mask")
	}
	if !p.OnOppositeSide(gridStates, mask) {
		t.Fatalf("expected particle and grid to be on opposite sides")
	}

	sameStates := p.States
	if p.OnOppositeSide(sameStates, mask) {
		t.Fatalf("identical states must not report opposite sides")
	}
}

func TestMaterialTagString(t *testing.T) {
	cases := map[MaterialTag]string{
		TagElastic:  "elastic",
		TagWater:    "water",
		TagNonlocal: "nonlocal",
	}
	for tag, want := range cases {
		if got := tag.String(); got != want {
			t.Errorf("tag %d: String() = %q, want %q", tag, got, want)
		}
	}
}

func TestMat3MulIdentity(t *testing.T) {
	a := Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	got := a.Mul(Identity3())
	if got != a {
		t.Fatalf("A * I = %+v, want %+v", got, a)
	}
}

func TestMat3TransposeTwiceIsIdentityOp(t *testing.T) {
	a := Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	got := a.Transpose().Transpose()
	if got != a {
		t.Fatalf("transpose twice = %+v, want %+v", got, a)
	}
}

func TestMat3DetIdentity(t *testing.T) {
	if got := Identity3().Det(); got != 1 {
		t.Fatalf("det(I) = %v, want 1", got)
	}
}

func TestMat3DenseRoundTrip(t *testing.T) {
	a := Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	back := Mat3FromDense(a.ToDense())
	if back != a {
		t.Fatalf("dense round trip = %+v, want %+v", back, a)
	}
}

func TestMat3InverseOfIdentity(t *testing.T) {
	if got := Identity3().Inverse(); got != Identity3() {
		t.Fatalf("inverse(I) = %+v, want I", got)
	}
}

func TestMat3InverseRoundTrip(t *testing.T) {
	a := Mat3{{2, 0, 0}, {0, 3, 0}, {0, 0, 4}}
	inv := a.Inverse()
	got := a.Mul(inv)
	want := Identity3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if abs32(got[i][j]-want[i][j]) > 1e-5 {
				t.Fatalf("A*A^-1 = %+v, want identity", got)
			}
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
