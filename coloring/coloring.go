// Package coloring implements the CPIC "states" bit packing shared by grid
// cells and particles (spec §3, §4.H) and the friction-projection math used
// by both the Rasterize and Resample transfer kernels.
package coloring

import (
	"math"

	"github.com/pthm-cable/mlsmpm/mpmerrors"
)

// Compile-time constants preserved across implementations (spec §6).
const (
	MaxRigidBodies = 12
	TagBits        = 2 * MaxRigidBodies
	IDBits         = 8

	// StateMask selects the tag-bits region of a states word.
	StateMask = (uint32(1) << TagBits) - 1
)

// SideTag returns the 2-bit side tag for rigid body r.
func SideTag(states uint32, r int) uint32 {
	return (states >> uint(2*r)) & 3
}

// SetSideTag sets the 2-bit side tag for rigid body r (bit 2r+1 "active for
// r", bit 2r "side").
func SetSideTag(states uint32, r int, tag uint32) uint32 {
	shift := uint(2 * r)
	states &^= 3 << shift
	return states | ((tag & 3) << shift)
}

// ActiveMask returns the bit (2r+1) mask marking rigid r as active.
func ActiveMask(r int) uint32 { return 1 << uint(2*r+1) }

// RigidID returns the rigid-body id encoded in the high bits of states, or
// -1 if none (id 0 means "no rigid body").
func RigidID(states uint32) int {
	id := states >> TagBits
	if id == 0 {
		return -1
	}
	return int(id) - 1
}

// SetRigidID returns states with its high bits set to id+1 (tag bits
// preserved). Returns InternalInvariant if id is out of [0, MaxRigidBodies).
func SetRigidID(states uint32, id int) (uint32, error) {
	if id < 0 {
		return states & StateMask, nil
	}
	if id >= MaxRigidBodies {
		return states, mpmerrors.New(mpmerrors.InternalInvariant, "rigid id %d exceeds max_num_rigid_bodies=%d", id, MaxRigidBodies)
	}
	return (states & StateMask) | (uint32(id+1) << TagBits), nil
}

// Merge ORs a particle's tag bits into a grid cell's states (invariant 3:
// "states on the grid is the merge of contributing particles' states").
func Merge(gridStates, particleStates uint32) uint32 {
	return gridStates | (particleStates & StateMask)
}

// CutMask returns the set of rigid bodies for which both gridStates and
// particleStates are active, restricted to the tag-bit region.
func CutMask(gridStates, particleStates uint32) uint32 {
	return gridStates & particleStates & StateMask
}

// OnOppositeSides reports whether, under mask (as returned by CutMask), the
// grid and particle states disagree on any active rigid body's side —
// i.e. whether the particle is on the far side of at least one rigid body
// relative to this grid node (spec §4.E step 4).
func OnOppositeSides(gridStates, particleStates, mask uint32) bool {
	if mask == 0 {
		return false
	}
	// mask holds the active bits (2r+1); shifting it down one selects the
	// matching side bits (2r), which are what is compared.
	side := mask >> 1
	return (gridStates & side) != (particleStates & side)
}

// epsilon guards the tangential-scale division in FrictionProject against a
// zero relative-tangential-velocity.
const epsilon = 1e-12

// FrictionProject implements the §4.H contact law. mu == -1 means sticky
// (return vBase unchanged); mu <= -2 means "slip with friction", where the
// effective coefficient is -mu-2 and the normal component is never added
// back: even a separating normal velocity is dropped, leaving only the
// scaled tangential part plus vBase.
func FrictionProject(v, vBase, n [3]float32, mu float32) [3]float32 {
	if mu == -1 {
		return vBase
	}
	slip := false
	if mu <= -2 {
		slip = true
		mu = -mu - 2
	}

	var rel [3]float32
	for i := range rel {
		rel[i] = v[i] - vBase[i]
	}
	relDotN := rel[0]*n[0] + rel[1]*n[1] + rel[2]*n[2]

	var vn, vt [3]float32
	for i := range vn {
		vn[i] = relDotN * n[i]
		vt[i] = rel[i] - vn[i]
	}
	vtNorm := float32(math.Sqrt(float64(vt[0]*vt[0] + vt[1]*vt[1] + vt[2]*vt[2])))

	minVnN := relDotN
	if minVnN > 0 {
		minVnN = 0
	}
	denom := vtNorm
	if denom < epsilon {
		denom = epsilon
	}
	num := vtNorm + minVnN*mu
	if num < 0 {
		num = 0
	}
	s := num / denom

	var out [3]float32
	normalTerm := float32(0)
	if !slip && relDotN > 0 {
		normalTerm = relDotN
	}
	for i := range out {
		out[i] = s*vt[i] + normalTerm*n[i] + vBase[i]
	}
	return out
}
