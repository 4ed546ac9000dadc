package material

import (
	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Jelly implements fixed-corotated hyperelasticity (spec §4.G):
// P = 2*mu*(F-R) + lambda*(J-1)*J*F^-T.
type Jelly struct {
	Mu, Lambda float32
}

func NewJelly(c mpmconfig.JellyConfig) Jelly {
	mu, lambda := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return Jelly{Mu: mu, Lambda: lambda}
}

func (m Jelly) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	r, _ := polarDecompose(p.DgE)
	j := p.DgE.Det()
	fInvT := p.DgE.Inverse().Transpose()
	term1 := p.DgE.Sub(r).Scale(2 * m.Mu)
	term2 := fInvT.Scale(m.Lambda * (j - 1) * j)
	return term1.Add(term2)
}

func (m Jelly) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgE.Transpose()).Scale(-p.Vol)
}

func (m Jelly) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	p.DgE = dgInc.Mul(p.DgE)
	return 0
}

func (m Jelly) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf((m.Lambda + 2*m.Mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Jelly) PotentialEnergy(p *particle.MPMParticle) float32 {
	j := p.DgE.Det()
	_, sigma, _ := svd3(p.DgE)
	var devSq float32
	for i := 0; i < 3; i++ {
		d := sigma[i][i] - 1
		devSq += d * d
	}
	return (m.Mu*devSq + 0.5*m.Lambda*(j-1)*(j-1)) * p.Vol
}

func (m Jelly) Name() string { return "jelly" }

func (m Jelly) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"J": p.DgE.Det()}
}
