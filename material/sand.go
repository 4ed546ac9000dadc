package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Sand implements Drucker-Prager return-mapping plasticity on log-strain
// (spec §4.G), following the standard MPM sand formulation: the trial
// elastic deformation gradient is decomposed, its log-singular-values
// (Hencky strain) are projected onto the DP cone, and the projected strain
// is exponentiated back into dg_e.
type Sand struct {
	Mu, Lambda    float32
	FrictionAngle float32
	Cohesion      float32
	Beta          float32 // dilatancy: fraction of volumetric expansion kept under cohesive yielding
}

func NewSand(c mpmconfig.SandConfig) Sand {
	mu, lambda := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return Sand{
		Mu:            mu,
		Lambda:        lambda,
		FrictionAngle: float32(c.FrictionAngle),
		Cohesion:      float32(c.Cohesion),
		Beta:          float32(c.Beta),
	}
}

// alpha is the Drucker-Prager cone coefficient derived from the friction
// angle (Klar et al. 2016).
func (m Sand) alpha() float32 {
	s := float32(math.Sin(float64(m.FrictionAngle)))
	return float32(math.Sqrt(2.0/3.0)) * 2 * s / (3 - s)
}

func (m Sand) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
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

func (m Sand) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgE.Transpose()).Scale(-p.Vol)
}

// Plasticity projects the trial Hencky strain onto the Drucker-Prager cone
// (Klar et al. 2016, "Drucker-Prager Elastoplasticity for Sand Animation").
func (m Sand) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
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
	trace := eps[0] + eps[1] + eps[2]
	mean := trace / 3
	var epsHat [3]float32
	var epsHatNormSq float32
	for i := 0; i < 3; i++ {
		epsHat[i] = eps[i] - mean
		epsHatNormSq += epsHat[i] * epsHat[i]
	}
	epsHatNorm := sqrtf(epsHatNormSq)

	alpha := m.alpha()
	shiftedTrace := trace - m.Cohesion

	var newEps [3]float32
	iterations := 0

	switch {
	case epsHatNorm <= 0 || shiftedTrace > 0:
		// Pure expansion beyond cohesion: project toward the tip of the
		// cone, retaining a Beta-scaled fraction of volumetric expansion
		// as dilatancy rather than collapsing fully to zero strain.
		for i := 0; i < 3; i++ {
			newEps[i] = mean * m.Beta
		}
		iterations = 1
	default:
		deltaGamma := epsHatNorm + (3*m.Lambda+2*m.Mu)/(2*m.Mu)*shiftedTrace*alpha
		if deltaGamma <= 0 {
			newEps = eps
		} else {
			scale := deltaGamma / epsHatNorm
			for i := 0; i < 3; i++ {
				newEps[i] = eps[i] - scale*epsHat[i]
			}
			iterations = 1
		}
	}

	var clamped particle.Mat3
	newTrace := float32(0)
	for i := 0; i < 3; i++ {
		s := float32(math.Exp(float64(newEps[i])))
		clamped[i][i] = s
		newTrace += newEps[i]
	}
	p.DgE = u.Mul(clamped).Mul(v.Transpose())
	p.LogJp += trace - newTrace
	return iterations
}

func (m Sand) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf((m.Lambda + 2*m.Mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Sand) PotentialEnergy(p *particle.MPMParticle) float32 {
	_, sigma, _ := svd3(p.DgE)
	var energy float32
	trace := float32(0)
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

func (m Sand) Name() string { return "sand" }

func (m Sand) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"logJp": p.LogJp}
}
