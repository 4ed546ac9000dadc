package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Snow implements corotated fixed elasticity with plastic hardening (spec
// §4.G): Sigma is clamped into [1-theta_c, 1+theta_s] each plasticity step,
// and the hardening factor exp(hardening*(1-Jp)) stiffens the Lame
// parameters as compaction accumulates.
type Snow struct {
	Mu0, Lambda0 float32
	Hardening    float32
	ThetaC       float32
	ThetaS       float32
	MinJp        float32
	MaxJp        float32
}

func NewSnow(c mpmconfig.SnowConfig) Snow {
	mu0, lambda0 := lameParameters(c.YoungsModulus, c.PoissonRatio)
	return Snow{
		Mu0:       mu0,
		Lambda0:   lambda0,
		Hardening: float32(c.Hardening),
		ThetaC:    float32(c.ThetaC),
		ThetaS:    float32(c.ThetaS),
		MinJp:     float32(c.MinJp),
		MaxJp:     float32(c.MaxJp),
	}
}

func (m Snow) hardened(p *particle.MPMParticle) (mu, lambda float32) {
	h := float32(math.Exp(float64(m.Hardening * (1 - p.Jp))))
	return m.Mu0 * h, m.Lambda0 * h
}

func (m Snow) FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3 {
	mu, lambda := m.hardened(p)
	r, _ := polarDecompose(p.DgE)
	j := p.DgE.Det()
	fInvT := p.DgE.Inverse().Transpose()
	term1 := p.DgE.Sub(r).Scale(2 * mu)
	term2 := fInvT.Scale(lambda * (j - 1) * j)
	return term1.Add(term2)
}

func (m Snow) Force(p *particle.MPMParticle) particle.Mat3 {
	pk1 := m.FirstPiolaKirchhoff(p)
	return pk1.Mul(p.DgE.Transpose()).Scale(-p.Vol)
}

// Plasticity clamps the trial deformation gradient's singular values into
// [1-theta_c, 1+theta_s], accumulating the dropped volume ratio into Jp.
func (m Snow) Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int {
	trial := dgInc.Mul(p.DgE)
	u, sigma, v := svd3(trial)

	jOld := float32(1)
	jNew := float32(1)
	var clamped particle.Mat3
	for i := 0; i < 3; i++ {
		s := clampf(sigma[i][i], 1-m.ThetaC, 1+m.ThetaS)
		jOld *= sigma[i][i]
		jNew *= s
		clamped[i][i] = s
	}

	jp := p.Jp * jOld / jNew
	p.Jp = clampf(jp, m.MinJp, m.MaxJp)
	p.LogJp = float32(math.Log(float64(p.Jp)))
	p.DgE = u.Mul(clamped).Mul(v.Transpose())
	return 0
}

func (m Snow) AllowedDT(p *particle.MPMParticle, dx float32) float32 {
	mu, lambda := m.hardened(p)
	cSound := sqrtf((lambda + 2*mu) / densityFloor)
	return dx / (cSound + vecNorm(p.Velocity))
}

func (m Snow) PotentialEnergy(p *particle.MPMParticle) float32 {
	mu, lambda := m.hardened(p)
	j := p.DgE.Det()
	_, sigma, _ := svd3(p.DgE)
	var devSq float32
	for i := 0; i < 3; i++ {
		d := sigma[i][i] - 1
		devSq += d * d
	}
	return (mu*devSq + 0.5*lambda*(j-1)*(j-1)) * p.Vol
}

func (m Snow) Name() string { return "snow" }

func (m Snow) DebugInfo(p *particle.MPMParticle) map[string]float32 {
	return map[string]float32{"Jp": p.Jp, "logJp": p.LogJp}
}
