// Package grid implements the sparse paged grid: fixed-size GridState cells
// organized into power-of-two blocks, the block-offset bit encoding, the
// page map of committed blocks, the block-local grid cache, and the
// block-coloring parallel scheduler (spec §4.A, §4.B, §4.D).
package grid

import "github.com/pthm-cable/mlsmpm/coloring"

// MaxRigidBodies, TagBits, IDBits and StateMask mirror the coloring package's
// constants; the states word layout is shared with particle.MPMParticle so the
// two packages agree on encoding (spec §3, §4.H).
const (
	MaxRigidBodies = coloring.MaxRigidBodies
	TagBits        = coloring.TagBits
	IDBits         = coloring.IDBits
	StateMask      = coloring.StateMask
)

// GridState is one fixed-size record per grid node. Its size is a power of
// two (64 bytes) for cache alignment; field widths are preserved exactly as
// spec §6 requires for replay compatibility (distance is 64-bit, the rest
// 32-bit or narrower).
type GridState struct {
	// VelocityAndMass holds the momentum vector in lanes [0:3] and mass in
	// lane 3 during P2G; after grid normalization the first dim lanes hold
	// velocity.
	VelocityAndMass [4]float32 // 16 bytes
	// Distance is the signed distance to the nearest rigid surface, used by
	// an external CDF/coloring precompute. Preserved as float64 per spec.
	Distance float64 // 8 bytes

	// States packs per-rigid side tags in the low TagBits bits and a
	// (rigid_id+1) in the high IDBits bits; 0 in the high bits means "no
	// rigid body owns this cell".
	States         uint32 // 4 bytes
	ParticleCount  uint32 // 4 bytes
	Lock           int32  // 4 bytes; spinlock word for the use-locks build mode
	Flags          uint16 // 2 bytes; reserved
	_padFlags      uint16 // 2 bytes; alignment padding

	GranularFluidity float32 // 4 bytes; Nonlocal material's node-scalar field
	Aux0             float32 // 4 bytes
	Aux1             float32 // 4 bytes
	Aux2             float32 // 4 bytes
	Aux3             float32 // 4 bytes

	_reserved uint32 // 4 bytes; pads the cell to 64 bytes
}

// cellStateSize is asserted (by the init-time check below) to be a power of
// two, as spec §3 requires.
const cellStateSize = 64

func init() {
	if cellStateSize&(cellStateSize-1) != 0 {
		panic("grid: GridState size must be a power of two")
	}
}

// SideTag returns the 2-bit side tag for rigid body r (0-3): bit 1 marks r
// active and bit 0 is the side, which carries no meaning unless the active
// bit is set (see coloring.ActiveMask).
func (s *GridState) SideTag(r int) uint32 {
	return coloring.SideTag(s.States, r)
}

// RigidID returns the stable rigid-body id stored in states, or -1 if none.
func (s *GridState) RigidID() int {
	return coloring.RigidID(s.States)
}

// SetRigidID stores id (which must be in [0, MaxRigidBodies)) in the
// high bits of states, preserving the tag bits. Returns InternalInvariant if
// id is out of range (states encoding overflow, spec §7).
func (s *GridState) SetRigidID(id int) error {
	states, err := coloring.SetRigidID(s.States, id)
	if err != nil {
		return err
	}
	s.States = states
	return nil
}

// MergeParticleStates ORs a particle's tag bits into this cell's states,
// implementing invariant 3: "states on the grid is the merge of
// contributing particles' states in that block".
func (s *GridState) MergeParticleStates(particleStates uint32) {
	s.States = coloring.Merge(s.States, particleStates)
}

// Reset zeroes the per-step-rebuilt fields (velocity/mass, particle count,
// the tag bits of states) while preserving fields that persist across steps
// (distance, flags, lock, and the rigid id in the high bits of states). Called once per block at the start of each step's
// Rasterize phase.
func (s *GridState) Reset() {
	s.VelocityAndMass = [4]float32{}
	s.States &^= StateMask // clear tag bits, keep rigid id
	s.ParticleCount = 0
}

// Mass returns the mass lane of VelocityAndMass.
func (s *GridState) Mass() float32 { return s.VelocityAndMass[3] }

// Velocity returns the first dim velocity lanes (valid after normalization).
func (s *GridState) Velocity(dim int) [3]float32 {
	var v [3]float32
	for i := 0; i < dim; i++ {
		v[i] = s.VelocityAndMass[i]
	}
	return v
}
