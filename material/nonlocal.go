package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Nonlocal implements the non-local granular fluidity (NGF) rheology (spec
// §4.G): the elastic deformation gradient is split out of a tracked total
// deformation F_t and plastic part F_p, a scalar fluidity gf relaxes toward
// its local mu(I)-rheology value plus a nonlocal (Laplacian) correction,
// and the shear stress is projected consistently with the updated fluidity.
type Nonlocal struct {
	SMod, BMod      float32 // shear / bulk modulus
	AMat            float32 // nonlocal amplitude
	Dia             float32 // grain diameter
	Density         float32
	CriticalDensity float32
	MuS, Mu2        float32 // static / dynamic friction coefficients
	I0              float32
	T0              float32 // fluidity relaxation time
	BaseDeltaT      float32 // fixed substep used by the gf relaxation ODE
}

func NewNonlocal(c mpmconfig.NonlocalConfig) Nonlocal {
	return Nonlocal{
		SMod:            float32(c.SMod),
		BMod:            float32(c.BMod),
		AMat:            float32(c.AMat),
		Dia:             float32(c.Dia),
		Density:         float32(c.Density),
		CriticalDensity: float32(c.CriticalDensity),
		MuS:             float32(c.MuS),
		Mu2:             float32(c.Mu2),
		I0:              float32(c.I0),
		T0:              float32(c.T0),
		BaseDeltaT:      float32(c.BaseDeltaT),
	}
}

func (m Nonlocal) dgE(p *particle.MPMParticle) particle.Mat3 {
	return p.DgT.Mul(p.DgP.Inverse())
}

func (m Nonlocal) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	fe := m.dgE(p)
	r, s := polarDecompose(fe)
	dev := deviatoric3(s.Sub(particle.Identity3()))
	tau := dev.Scale(2 * m.SMod)
	je := fe.Det()
	pressure := -m.BMod * (je - 1)
	if pressure < 0 {
		pressure = 0
	}
	var pI particle.Mat3
	for i := 0; i < 3; i++ {
		pI[i][i] = -pressure
	}
	return r.Mul(tau.Add(pI))
}

func (m Nonlocal) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgT.Transpose()).Scale(-p.Vol)
}

// Plasticity advances the total deformation gradient, splits the elastic
// part, computes the Mandel (corotated) stress, evolves the granular
// fluidity gf by the nonlocal relaxation ODE, and projects the shear stress
// and plastic deformation gradient to match the updated fluidity.
func (m Nonlocal) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	p.DgT = dgInc.Mul(p.DgT)
	fe := m.dgE(p)

	r, s := polarDecompose(fe)
	dev := deviatoric3(s.Sub(particle.Identity3()))
	devNorm := mat3Norm(dev)
	tauTrial := 2 * m.SMod * devNorm

	je := fe.Det()
	pressure := -m.BMod * (je - 1)
	if pressure < 0 {
		pressure = 0
	}
	p.P = pressure

	// Local inertial-rheology source term for the fluidity ODE: positive
	// when trial shear exceeds static yield, driving gf upward; saturates
	// toward the dynamic friction coefficient Mu2.
	gdotLoc := float32(0)
	if pressure > 1e-8 {
		mu := tauTrial / pressure
		if mu > m.MuS {
			excess := mu - m.MuS
			if mu > m.Mu2 {
				excess = m.Mu2 - m.MuS
			}
			gdotLoc = excess * sqrtf(pressure/m.Density) / m.Dia
		}
	}

	if m.T0 > 1e-8 {
		p.Gf += m.BaseDeltaT * (gdotLoc + m.AMat*m.AMat*m.Dia*m.Dia*lapGf) / m.T0
	}
	if p.Gf < 0 {
		p.Gf = 0
	}

	// Project tau to the value consistent with the relaxed fluidity: a
	// flowing (gf>0) particle supports at most the dynamic yield stress
	// mu_2*P; a jammed particle (gf==0) cannot exceed the static yield
	// mu_s*P.
	muCap := m.MuS
	if p.Gf > 0 {
		muCap = m.Mu2
	}
	tauCap := muCap * pressure
	p.Tau = tauTrial
	if p.Tau > tauCap {
		p.Tau = tauCap
	}

	if devNorm > 1e-8 && tauTrial > 0 {
		scale := p.Tau / tauTrial
		projectedDev := dev.Scale(scale)
		sProjected := projectedDev.Add(particle.Identity3())
		feProjected := r.Mul(sProjected)
		p.DgP = p.DgT.Mul(feProjected.Inverse())
	}
	return 0
}

func (m Nonlocal) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	cSound := sqrtf(m.BMod / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Nonlocal) PotentialEnergy(p *particle.MPMParticle) float32 {
	fe := m.dgE(p)
	_, s := polarDecompose(fe)
	dev := deviatoric3(s.Sub(particle.Identity3()))
	devSq := mat3Norm(dev)
	je := fe.Det()
	return (m.SMod*devSq*devSq + 0.5*m.BMod*(je-1)*(je-1)) * p.Vol
}

func (m Nonlocal) Name() string { return "nonlocal" }

func (m Nonlocal) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"gf": p.Gf, "tau": p.Tau, "p": p.P}
}

func deviatoric3(a particle.Mat3) particle.Mat3 {
	trace := a.Trace() / 3
	var out particle.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j]
		}
		out[i][i] -= trace
	}
	return out
}

func mat3Norm(a particle.Mat3) float32 {
	var sum float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum += a[i][j] * a[i][j]
		}
	}
	return float32(math.Sqrt(float64(sum)))
}
