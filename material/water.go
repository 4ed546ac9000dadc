package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Water implements the Tait equation-of-state fluid (spec §4.G):
// p = k*(J^-gamma - 1), sigma = -p*I. J is tracked directly in p.Jp rather
// than through a full deformation gradient, matching weakly-compressible
// MPM fluid implementations that drop dg_e entirely for this model.
type Water struct {
	K     float32
	Gamma float32
}

func NewWater(c mpmconfig.WaterConfig) Water {
	return Water{K: float32(c.K), Gamma: float32(c.Gamma)}
}

func (m Water) pressure(j float32) float32 {
	if j < 1e-6 {
		j = 1e-6
	}
	jg := float32(math.Pow(float64(j), float64(-m.Gamma)))
	return m.K * (jg - 1)
}

func (m Water) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	pr := m.pressure(p.Jp)
	var sigma particle.Mat3
	for i := 0; i < 3; i++ {
		sigma[i][i] = -pr
	}
	return sigma
}

// Force returns vol*pressure*I: the isotropic Cauchy stress -p*I pushed
// forward through volume scaling (F^T cancels for an isotropic pressure
// field, so Force = -vol*sigma directly).
func (m Water) Force(p *particle.MPMParticle) particle.Mat3 {
	pr := m.pressure(p.Jp)
	var out particle.Mat3
	for i := 0; i < 3; i++ {
		out[i][i] = pr * p.Vol
	}
	return out
}

// Plasticity updates J by tr(F_inc) - (dim-1), the first-order volume
// change implied by the reconstructed velocity gradient increment, clamped
// to keep the fluid from evaporating or collapsing to zero volume.
func (m Water) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	const dim = 3
	delta := dgInc.Trace() - (dim - 1)
	p.Jp = clampf(p.Jp*delta, 0.05, 20)
	return 0
}

func (m Water) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf(m.K * m.Gamma / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Water) PotentialEnergy(p *particle.MPMParticle) float32 {
	if p.Jp < 1e-6 {
		return 0
	}
	jg1 := float32(math.Pow(float64(p.Jp), float64(1-m.Gamma)))
	energy := m.K * (jg1/(m.Gamma-1) + p.Jp) / m.Gamma
	return energy * p.Vol
}

func (m Water) Name() string { return "water" }

func (m Water) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"J": p.Jp, "pressure": m.pressure(p.Jp)}
}
