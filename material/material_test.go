package material

import (
	"math"
	"testing"

	"github.com/pthm-cable/mlsmpm/particle"
)

func isZero3(a particle.Mat3, tol float32) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if absf(a[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

func TestWaterJOneIsZeroForce(t *testing.T) {
	m := Water{K: 1e4, Gamma: 7}
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagWater)
	p.Jp = 1
	got := m.Force(&p)
	if !isZero3(got, 1e-5) {
		t.Fatalf("expected zero force at J=1, got %+v", got)
	}
}

func TestSandZeroDeformationZeroForceAndIdentityPlasticity(t *testing.T) {
	m := Sand{Mu: 1e4, Lambda: 1e4, FrictionAngle: 0.6754, Cohesion: 0, Beta: 1}
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagSand)

	force := m.Force(&p)
	if !isZero3(force, 1e-4) {
		t.Fatalf("expected zero force for identity dg_e, got %+v", force)
	}

	m.Plasticity(&p, particle.Identity3(), 0)
	if !matAlmostEqual(p.DgE, particle.Identity3(), 1e-4) {
		t.Fatalf("expected dg_e == I after plasticity(I), got %+v", p.DgE)
	}
}

func matAlmostEqual(a, b particle.Mat3, tol float32) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if absf(a[i][j]-b[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

func TestJellyIdentityIsZeroForce(t *testing.T) {
	m := Jelly{Mu: 5e4, Lambda: 5e4}
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagJelly)
	got := m.Force(&p)
	if !isZero3(got, 1e-3) {
		t.Fatalf("expected zero force for identity dg_e, got %+v", got)
	}
}

func TestElasticIdentityIsZeroForce(t *testing.T) {
	m := Elastic{Mu: 5e4, Lambda: 5e4}
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagElastic)
	got := m.Force(&p)
	if !isZero3(got, 1e-3) {
		t.Fatalf("expected zero force for identity dg_e, got %+v", got)
	}
}

func TestSnowHardeningIncreasesWithCompaction(t *testing.T) {
	m := Snow{Mu0: 1, Lambda0: 1, Hardening: 10, ThetaC: 0.025, ThetaS: 0.0075, MinJp: 0.6, MaxJp: 20}
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagSnow)
	p.Jp = 0.9 // compacted

	mu, _ := m.hardened(&p)
	if mu <= m.Mu0 {
		t.Fatalf("expected hardened mu > mu0 under compaction, got mu=%v mu0=%v", mu, m.Mu0)
	}
}

func TestVonMisesProjectsExcessDeviatoricStrain(t *testing.T) {
	m := VonMises{Mu: 1e5, Lambda: 1e5, YieldStress: 1e3}
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagVonMises)
	// A strongly sheared trial deformation should be projected back toward
	// a bounded deviatoric strain.
	dgInc := particle.Mat3{{1.5, 0, 0}, {0, 1, 0}, {0, 0, 0.67}}
	m.Plasticity(&p, dgInc, 0)

	_, sigma, _ := svd3(p.DgE)
	var logs [3]float32
	for i := 0; i < 3; i++ {
		logs[i] = float32(math.Log(float64(sigma[i][i])))
	}
	mean := (logs[0] + logs[1] + logs[2]) / 3
	var devNormSq float32
	for i := 0; i < 3; i++ {
		d := logs[i] - mean
		devNormSq += d * d
	}
	devNorm := float32(math.Sqrt(float64(devNormSq)))
	radius := m.YieldStress/(2*m.Mu) + 1e-4
	if devNorm > radius {
		t.Fatalf("deviatoric strain %v exceeds yield radius %v after projection", devNorm, radius)
	}
}

func TestBuildTableDispatchesAllTags(t *testing.T) {
	tags := []particle.MaterialTag{
		particle.TagElastic, particle.TagJelly, particle.TagLinear, particle.TagSnow,
		particle.TagSand, particle.TagVonMises, particle.TagVisco, particle.TagWater, particle.TagNonlocal,
	}
	tbl := &Table{
		byTag: [9]Model{
			Elastic{Mu: 1, Lambda: 1},
			Jelly{Mu: 1, Lambda: 1},
			Linear{Mu: 1, Lambda: 1},
			Snow{Mu0: 1, Lambda0: 1, Hardening: 1, ThetaC: 0.025, ThetaS: 0.0075, MinJp: 0.6, MaxJp: 20},
			Sand{Mu: 1, Lambda: 1, FrictionAngle: 0.6, Beta: 1},
			VonMises{Mu: 1, Lambda: 1, YieldStress: 1},
			Visco{Mu: 1, Lambda: 1, Tau: 1, Kappa: 1},
			Water{K: 1, Gamma: 7},
			Nonlocal{SMod: 1, BMod: 1, MuS: 0.3, Mu2: 0.6, I0: 0.2, T0: 1, BaseDeltaT: 1e-4, Density: 1000, Dia: 1e-3},
		},
	}
	for _, tag := range tags {
		if tbl.For(tag) == nil {
			t.Errorf("no model registered for tag %v", tag)
		}
	}
}
