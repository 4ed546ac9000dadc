package engine

import (
	"testing"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
	"github.com/pthm-cable/mlsmpm/rigid"
)

func testConfig(t *testing.T) *mpmconfig.Config {
	t.Helper()
	cfg, err := mpmconfig.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Physics.ParticleGravity = false
	cfg.Physics.GravityY = 0
	cfg.Grid.ResX, cfg.Grid.ResY, cfg.Grid.ResZ = 16, 16, 16
	cfg.Derived.BlockDims = [3]int{4, 4, 4}
	cfg.Derived.BlockCells = 64
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := testConfig(t)
	return New(cfg, rigid.NewStaticRegistry(), 3, 0)
}

func totalMass(e *Engine) float32 {
	var m float32
	for i := range e.Particles {
		m += e.Particles[i].Mass
	}
	return m
}

// totalGridMass sums the mass lane across every live block's cells, the
// grid-side half of spec §8's mass-conservation property.
func totalGridMass(e *Engine) float32 {
	var m float32
	e.Grid.LiveBlocks(func(off uint64) {
		cells, err := e.Grid.Cells(off)
		if err != nil {
			return
		}
		for i := range cells {
			m += cells[i].Mass()
		}
	})
	return m
}

// TestStepConservesMassOnPureMomentumPath pins spec §8's mass-conservation
// property on the grid side: every live block must actually receive its
// particles' P2G contribution. Particles are spread across multiple blocks
// so a scheduler bug that only flushes one block's write-back (rather than
// every block's) shows up as a mismatch here, not just unchanged particle
// mass (which a lost write-back never touches).
func TestStepConservesMassOnPureMomentumPath(t *testing.T) {
	e := newTestEngine(t)
	dx := e.Cfg.Derived.Dx32
	blockCells := float32(e.Cfg.Derived.BlockDims[0])

	for i := 0; i < 4; i++ {
		pos := [3]float32{
			(2 + float32(i)*blockCells) * dx,
			8 * dx,
			8 * dx,
		}
		p := particle.NewMPMParticle(pos, 1.0, 1.0, particle.TagElastic)
		e.AddParticle(p)
	}

	wantMass := totalMass(e)

	if err := e.Step(1e-4); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if gotMass := totalMass(e); gotMass != wantMass {
		t.Errorf("particle mass changed across a step: got %v, want %v", gotMass, wantMass)
	}

	if liveBlocks := e.Grid.LiveBlockCount(); liveBlocks < 2 {
		t.Fatalf("test setup did not spread particles across multiple blocks: got %d live blocks", liveBlocks)
	}

	gotGridMass := totalGridMass(e)
	if diff := gotGridMass - wantMass; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("grid mass after Step = %v, want %v (particle mass): a block's P2G contribution was not written back", gotGridMass, wantMass)
	}
}

func TestFreeParticleNoForceTravelsAtConstantVelocity(t *testing.T) {
	e := newTestEngine(t)
	dx := e.Cfg.Derived.Dx32

	pos := [3]float32{8 * dx, 8 * dx, 8 * dx}
	p := particle.NewMPMParticle(pos, 1.0, 1.0, particle.TagElastic)
	p.Velocity = [3]float32{1.0, 0, 0}
	idx := e.AddParticle(p)

	dt := float32(1e-4)
	if err := e.Step(dt); err != nil {
		t.Fatalf("Step: %v", err)
	}

	got := e.Particles[idx].Pos[0]
	want := pos[0] + dt*1.0
	if diff := got - want; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("free particle position = %v, want approximately %v", got, want)
	}
}

func TestStepRunsAllThreePhasesWithoutError(t *testing.T) {
	e := newTestEngine(t)
	dx := e.Cfg.Derived.Dx32

	for i := 0; i < 8; i++ {
		pos := [3]float32{
			(6 + float32(i%2)) * dx,
			(6 + float32(i/2)) * dx,
			6 * dx,
		}
		e.AddParticle(particle.NewMPMParticle(pos, 1.0, 1.0, particle.TagSand))
	}

	for step := 0; step < 3; step++ {
		if err := e.Step(1e-4); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
}
