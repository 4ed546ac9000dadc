package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Visco implements a rate-dependent corotated model: stress follows the
// Jelly corotated law, but plasticity relaxes the deviatoric Hencky strain
// toward equilibrium by a matrix-exponential decay factor exp(-1/tau) each
// step (spec §4.G "matrix-exponential approximation of the plastic flow"),
// with nu scaling the decay's velocity-dependence and kappa softening the
// volumetric (bulk) response.
type Visco struct {
	Mu, Lambda float32
	Tau        float32
	Nu         float32
	Kappa      float32
}

func NewVisco(c mpmconfig.ViscoConfig) Visco {
	mu, lambda := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return Visco{
		Mu:     mu,
		Lambda: lambda,
		Tau:    float32(c.Tau),
		Nu:     float32(c.Nu),
		Kappa:  float32(c.Kappa),
	}
}

func (m Visco) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	r, _ := polarDecompose(p.DgE)
	j := p.DgE.Det()
	fInvT := p.DgE.Inverse().Transpose()
	term1 := p.DgE.Sub(r).Scale(2 * m.Mu)
	term2 := fInvT.Scale(m.Kappa * (j - 1) * j)
	return term1.Add(term2)
}

func (m Visco) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgE.Transpose()).Scale(-p.Vol)
}

// Plasticity relaxes the deviatoric part of the trial Hencky strain toward
// zero by a fixed decay per step, modeling viscous flow without tracking an
// explicit relaxation ODE state.
func (m Visco) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	trial := dgInc.Mul(p.DgE)
	u, sigma, v := svd3(trial)

	var eps [3]float32
	for i := 0; i < 3; i++ {
		s := sigma[i][i]
		if s < 1e-6 {
			s = 1e-6
		}
		eps[i] = float32(math.Log(float64(s)))
	}
	mean := (eps[0] + eps[1] + eps[2]) / 3

	decay := float32(0)
	if m.Tau > 0 {
		decay = float32(math.Exp(-1.0 / float64(m.Tau) * float64(1+m.Nu*vecNorm(p.Velocity))))
	}

	var relaxed [3]float32
	for i := 0; i < 3; i++ {
		dev := eps[i] - mean
		relaxed[i] = mean + dev*decay
	}

	var clamped particle.Mat3
	for i := 0; i < 3; i++ {
		clamped[i][i] = float32(math.Exp(float64(relaxed[i])))
	}
	p.DgE = u.Mul(clamped).Mul(v.Transpose())
	p.Tau = decay
	return 0
}

func (m Visco) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf((m.Lambda + 2*m.Mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Visco) PotentialEnergy(p *particle.MPMParticle) float32 {
	j := p.DgE.Det()
	_, sigma, _ := svd3(p.DgE)
	var devSq float32
	for i := 0; i < 3; i++ {
		d := sigma[i][i] - 1
		devSq += d * d
	}
	return (m.Mu*devSq + 0.5*m.Kappa*(j-1)*(j-1)) * p.Vol
}

func (m Visco) Name() string { return "visco" }

func (m Visco) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"tau": p.Tau}
}
