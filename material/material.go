// Package material implements the constitutive `calculate_force` /
// `plasticity` contract (spec §4.G) for the nine concrete models, keyed by
// particle.MaterialTag rather than dispatched through an interface vtable
// (spec §7 redesign: "tagged variant plus a vtable-free dispatch table").
package material

import (
	"math"

	"github.com/pthm-cable/mlsmpm/particle"
)

// Model is the per-material constitutive contract (spec §4.G). Every
// concrete model below implements it; engine code dispatches by
// particle.MaterialTag via Table rather than an interface value stored per
// particle, so MPMParticle stays a flat, allocation-free record.
type Model interface {
	// Force returns the stress contribution -vol*P*F^T (spec §4.E step 3),
	// a pure function of particle state; must not mutate p.
	Force(p *particle.MPMParticle) particle.Mat3
	// Plasticity applies dgInc (the G2P-reconstructed deformation gradient
	// increment) and lapGf (the Laplacian of grid fluidity, used only by
	// Nonlocal), mutating p's deformation-gradient and internal scalar
	// state. Returns an implementation-defined counter (e.g. plastic
	// return-mapping iteration count; 0 if not applicable).
	Plasticity(p *particle.MPMParticle, dgInc particle.Mat3, lapGf float32) int
	// AllowedDT returns dx / (c_sound + |v|); 0 means "no constraint".
	AllowedDT(p *particle.MPMParticle, dx float32) float32
	// FirstPiolaKirchhoff returns P, the stress measure conjugate to F.
	FirstPiolaKirchhoff(p *particle.MPMParticle) particle.Mat3
	// PotentialEnergy returns the strain energy density times volume.
	PotentialEnergy(p *particle.MPMParticle) float32
	// Name identifies the model for logging/telemetry.
	Name() string
	// DebugInfo returns a small set of scalar diagnostics (e.g. J, Jp, tau)
	// for telemetry/inspection; never used for dynamics.
	DebugInfo(p *particle.MPMParticle) map[string]float32
}

// lameParameters converts (E, nu) to Lame's (mu, lambda), the conversion
// every corotated/StVK model below needs.
func lameParameters(youngsModulus, poissonRatio float64) (mu, lambda float32) {
	mu = float32(youngsModulus / (2 * (1 + poissonRatio)))
	lambda = float32(youngsModulus * poissonRatio / ((1 + poissonRatio) * (1 - 2*poissonRatio)))
	return
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrtf(v float32) float32 {
	if v < 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}
