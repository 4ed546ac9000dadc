package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// VonMises implements deviatoric return-mapping plasticity with yield
// radius yield_stress/(2*mu) (spec §4.G).
type VonMises struct {
	Mu, Lambda  float32
	YieldStress float32
}

func NewVonMises(c mpmconfig.VonMisesConfig) VonMises {
	mu, lambda := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return VonMises{Mu: mu, Lambda: lambda, YieldStress: float32(c.YieldStress)}
}

func (m VonMises) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	u, sigma, v := svd3(p.DgE)
	var logSigma particle.Mat3
	for i := 0; i < 3; i++ {
		s := sigma[i][i]
		if s < 1e-6 {
			s = 1e-6
		}
		logSigma[i][i] = float32(math.Log(float64(s)))
	}
	var invSigma particle.Mat3
	for i := 0; i < 3; i++ {
		invSigma[i][i] = 1 / sigma[i][i]
	}
	traceLog := logSigma.Trace()
	var inner particle.Mat3
	for i := 0; i < 3; i++ {
		inner[i][i] = (2*m.Mu*logSigma[i][i] + m.Lambda*traceLog) * invSigma[i][i]
	}
	return u.Mul(inner).Mul(v.Transpose())
}

func (m VonMises) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgE.Transpose()).Scale(-p.Vol)
}

// Plasticity projects the deviatoric Hencky strain back onto the yield
// surface whenever its norm exceeds yield_stress/(2*mu).
func (m VonMises) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
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
	var dev [3]float32
	var devNormSq float32
	for i := 0; i < 3; i++ {
		dev[i] = eps[i] - mean
		devNormSq += dev[i] * dev[i]
	}
	devNorm := sqrtf(devNormSq)

	radius := m.YieldStress / (2 * m.Mu)
	iterations := 0
	if devNorm > radius {
		scale := radius / devNorm
		for i := 0; i < 3; i++ {
			eps[i] = mean + dev[i]*scale
		}
		iterations = 1
	}

	var clamped particle.Mat3
	for i := 0; i < 3; i++ {
		clamped[i][i] = float32(math.Exp(float64(eps[i])))
	}
	p.DgE = u.Mul(clamped).Mul(v.Transpose())
	return iterations
}

func (m VonMises) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf((m.Lambda + 2*m.Mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m VonMises) PotentialEnergy(p *particle.MPMParticle) float32 {
	_, sigma, _ := svd3(p.DgE)
	var energy, trace float32
	for i := 0; i < 3; i++ {
		s := sigma[i][i]
		if s < 1e-6 {
			s = 1e-6
		}
		l := float32(math.Log(float64(s)))
		energy += m.Mu * l * l
		trace += l
	}
	energy += 0.5 * m.Lambda * trace * trace
	return energy * p.Vol
}

func (m VonMises) Name() string { return "von_mises" }

func (m VonMises) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"yield_stress": m.YieldStress}
}
