package material

import (
	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Linear implements small-strain linear elasticity, the simplest of the
// nine models and a useful baseline for the other corotated/Hencky models
// (spec §4.G, §6 table).
type Linear struct {
	Mu, Lambda float32
}

func NewLinear(c mpmconfig.LinearConfig) Linear {
	mu, lambda := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return Linear{Mu: mu, Lambda: lambda}
}

func (m Linear) strain(f particle.Mat3) particle.Mat3 {
	eps := f.Add(f.Transpose()).Scale(0.5).Sub(particle.Identity3())
	return eps
}

func (m Linear) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	eps := m.strain(p.DgE)
	trace := eps.Trace()
	var lambdaI particle.Mat3
	for i := 0; i < 3; i++ {
		lambdaI[i][i] = m.Lambda * trace
	}
	return eps.Scale(2 * m.Mu).Add(lambdaI)
}

func (m Linear) Force(p *particle.MPMParticle) particle.Mat3 {
	sigma := m.FirstPiolaKirchhoff(p) // already symmetric Cauchy-like stress
	return sigma.Scale(-p.Vol)
}

func (m Linear) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	p.DgE = dgInc.Mul(p.DgE)
	return 0
}

func (m Linear) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf((m.Lambda + 2*m.Mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Linear) PotentialEnergy(p *particle.MPMParticle) float32 {
	eps := m.strain(p.DgE)
	trace := eps.Trace()
	var devSq float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			devSq += eps[i][j] * eps[i][j]
		}
	}
	return (m.Mu*devSq + 0.5*m.Lambda*trace*trace) * p.Vol
}

func (m Linear) Name() string { return "linear" }

func (m Linear) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"trace_eps": m.strain(p.DgE).Trace()}
}
