// Package particle defines the per-particle record carried across P2G and
// G2P (spec §3): position, APIC affine/quadratic velocity carriers,
// deformation-gradient state, and the per-material scalar fields folded
// into one fixed record discriminated by a material tag.
package particle

import "github.com/pthm-cable/mlsmpm/coloring"

// MaxDim is the largest supported spatial dimension (3D); all fixed arrays
// below are sized for 3D and simply leave the third row/column/lane unused
// in 2D scenarios.
const MaxDim = 3

// Mat3 is a row-major 3x3 matrix, used for apic_b, apic_c, dg_e, dg_p, dg_t
// and the Cauchy stress tensor. Kept as a plain array rather than a
// gonum/mat.Dense: particle records are hot, fixed-size, and allocation-free,
// but material.Force (gonum-backed SVD/polar decomposition) converts to and
// from *mat.Dense at its boundary.
type Mat3 [3][3]float32

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		m[i][i] = 1
	}
	return m
}

// MaterialTag discriminates the inline material-parameter union a particle
// carries (spec §7 redesign: "tagged variant plus a vtable-free dispatch
// table keyed by material_tag", replacing virtual inheritance).
type MaterialTag uint8

const (
	TagElastic MaterialTag = iota
	TagJelly
	TagLinear
	TagSnow
	TagSand
	TagVonMises
	TagVisco
	TagWater
	TagNonlocal
)

func (t MaterialTag) String() string {
	switch t {
	case TagElastic:
		return "elastic"
	case TagJelly:
		return "jelly"
	case TagLinear:
		return "linear"
	case TagSnow:
		return "snow"
	case TagSand:
		return "sand"
	case TagVonMises:
		return "von_mises"
	case TagVisco:
		return "visco"
	case TagWater:
		return "water"
	case TagNonlocal:
		return "nonlocal"
	default:
		return "unknown"
	}
}

// MPMParticle is one particle's complete state (spec §3). It is owned
// exclusively by the block that contains its base cell during a step; no
// particle-level locking is required (spec §4.H concurrency notes).
type MPMParticle struct {
	Pos      [3]float32
	Velocity [3]float32
	Mass     float32
	Vol      float32 // reference volume

	ApicB Mat3 // APIC affine velocity matrix
	ApicC Mat3 // APIC-C quadratic extension (MLS curvature term)

	DgE Mat3 // elastic deformation gradient (all materials)
	DgP Mat3 // plastic deformation gradient (Nonlocal)
	DgT Mat3 // total deformation gradient (materials tracking both parts)

	Jp    float32 // determinant-like plastic volume ratio (Snow); Water's volume ratio J
	LogJp float32 // log of Jp (Snow); Sand accumulates its volume correction here
	Gf    float32 // granular fluidity (Nonlocal)
	Tau   float32 // shear stress scalar (Nonlocal); Visco's last relaxation decay factor
	P     float32 // pressure scalar (Nonlocal)
	T     Mat3    // Cauchy stress tensor slot; no material model writes it

	// States packs per-rigid side tags, mirroring grid.GridState's encoding
	// (spec §4.H); the two packages share the coloring package so the
	// layouts cannot drift.
	States uint32

	BoundaryNormal   [3]float32
	BoundaryDistance float32
	Sticky           bool

	Material MaterialTag
	// ParamRef is a per-particle parameter-set index. material.Table holds
	// one model per MaterialTag and does not read it, so every particle of a
	// tag shares that model's constants.
	ParamRef int
}

// NewMPMParticle returns a particle at rest with identity deformation
// gradients, as emitters produce at scenario init (spec §3 lifecycle).
func NewMPMParticle(pos [3]float32, mass, vol float32, tag MaterialTag) MPMParticle {
	return MPMParticle{
		Pos:   pos,
		Mass:  mass,
		Vol:   vol,
		ApicB: Mat3{},
		ApicC: Mat3{},
		DgE:   Identity3(),
		DgP:   Identity3(),
		DgT:   Identity3(),
		Jp:    1,
		Material: tag,
	}
}

// SideTag returns the 2-bit side tag for rigid body r.
func (p *MPMParticle) SideTag(r int) uint32 { return coloring.SideTag(p.States, r) }

// SetSideTag sets the 2-bit side tag for rigid body r.
func (p *MPMParticle) SetSideTag(r int, tag uint32) {
	p.States = coloring.SetSideTag(p.States, r, tag)
}

// CutMask returns the rigid bodies active on both this particle and a grid
// cell's states, per the §4.E/§4.H coloring test.
func (p *MPMParticle) CutMask(gridStates uint32) uint32 {
	return coloring.CutMask(gridStates, p.States)
}

// OnOppositeSide reports whether, for the rigid bodies active on both sides
// (mask), the particle disagrees with the grid cell's recorded side.
func (p *MPMParticle) OnOppositeSide(gridStates, mask uint32) bool {
	return coloring.OnOppositeSides(gridStates, p.States, mask)
}

// FirstActiveRigid returns the lowest rigid id the particle is currently
// marked active against, or -1 if none.
func (p *MPMParticle) FirstActiveRigid() int {
	for r := 0; r < coloring.MaxRigidBodies; r++ {
		if p.States&coloring.ActiveMask(r) != 0 {
			return r
		}
	}
	return -1
}
