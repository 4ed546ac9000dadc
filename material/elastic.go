package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Elastic implements the StVK-Hencky hyperelastic model (spec §4.G):
// P = U*(2*mu*Sigma^-1*logSigma + lambda*tr(logSigma)*Sigma^-1)*V^T.
//
// The spec's notation "(Sigma logSigma)*Sigma^-1" is read as the standard
// Hencky-strain formulation (trace of log-Sigma scaling Sigma^-1, not a
// literal matrix product of Sigma and logSigma) — this is the conventional
// form used throughout the MPM constitutive-model literature and is the
// only reading under which the stress is isotropic in the absence of shear.
type Elastic struct {
	Mu, Lambda float32
}

// NewElastic builds an Elastic model from config.
func NewElastic(c mpmconfig.ElasticConfig) Elastic {
	mu, lambda := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return Elastic{Mu: mu, Lambda: lambda}
}

func (m Elastic) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	u, sigma, v := svd3(p.DgE)

	var invSigma, logSigma particle.Mat3
	traceLog := float32(0)
	for i := 0; i < 3; i++ {
		s := sigma[i][i]
		if s < 1e-6 {
			s = 1e-6
		}
		invSigma[i][i] = 1 / s
		logSigma[i][i] = float32(math.Log(float64(s)))
		traceLog += logSigma[i][i]
	}

	var inner particle.Mat3
	for i := 0; i < 3; i++ {
		inner[i][i] = 2*m.Mu*invSigma[i][i]*logSigma[i][i] + m.Lambda*traceLog*invSigma[i][i]
	}
	return u.Mul(inner).Mul(v.Transpose())
}

func (m Elastic) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgE.Transpose()).Scale(-p.Vol)
}

func (m Elastic) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	p.DgE = dgInc.Mul(p.DgE)
	return 0
}

func (m Elastic) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf((m.Lambda + 2*m.Mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Elastic) PotentialEnergy(p *particle.MPMParticle) float32 {
	_, sigma, _ := svd3(p.DgE)
	var energy float32
	for i := 0; i < 3; i++ {
		s := sigma[i][i]
		if s < 1e-6 {
			s = 1e-6
		}
		logS := float32(math.Log(float64(s)))
		energy += m.Mu * logS * logS
	}
	trace := float32(0)
	for i := 0; i < 3; i++ {
		s := sigma[i][i]
		if s < 1e-6 {
			s = 1e-6
		}
		trace += float32(math.Log(float64(s)))
	}
	energy += 0.5 * m.Lambda * trace * trace
	return energy * p.Vol
}

func (m Elastic) Name() string { return "elastic" }

func (m Elastic) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"mu": m.Mu, "lambda": m.Lambda}
}

// densityFloor avoids a divide-by-zero in the sound-speed estimate for
// materials that don't track a reference density directly.
const densityFloor = 1000

func vecNorm(v [3]float32) float32 {
	return sqrtf(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
