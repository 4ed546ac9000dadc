// Package rigid defines the RigidBody collaborator contract consumed by the
// transfer engine (spec §6) and a StaticRegistry fixture implementation
// sufficient to exercise the CPIC coloring path in tests: rigid-body
// collision/integration proper is out of scope (spec §1 Non-goals).
package rigid

import (
	"math"
	"sync"

	"github.com/pthm-cable/mlsmpm/mpmerrors"
)

// MaxBodies mirrors coloring.MaxRigidBodies; kept independent (not imported)
// since the registry only needs the bound, not the bit-packing helpers.
const MaxBodies = 12

// Body is the RigidBody collaborator contract: consumed by the engine via
// exactly these operations (spec §6). Collision/integration are external.
type Body interface {
	// ID returns a stable integer in [0, MaxBodies).
	ID() int
	// VelocityAt returns the body's surface velocity at a world-space point
	// (linear + angular contribution), used to compute friction_project's
	// v_base.
	VelocityAt(point [3]float32) [3]float32
	// Frictions returns the two friction coefficients, indexed by side: 0 =
	// outside, 1 = inside.
	Frictions() [2]float32
	// ApplyTmpImpulse accumulates an impulse applied at point into a
	// per-body scratch. Must be safe for concurrent callers (spec §5: "per-
	// thread scratch + final merge").
	ApplyTmpImpulse(impulse [3]float32, point [3]float32)
	// ResetTmpVelocity clears the per-step impulse scratch; called once at
	// the start of a phase that will accumulate impulses.
	ResetTmpVelocity()
	// ApplyTmpVelocity flushes the accumulated impulse scratch into the
	// body's authoritative velocity state; called once at phase end.
	ApplyTmpVelocity()
}

// Registry resolves rigid_id integers (as stored in grid/particle states)
// to Body collaborators (spec §7 redesign: "resolve by id + central
// registry").
type Registry interface {
	// Get returns the body with the given id, or (nil, false) if none is
	// registered at that id.
	Get(id int) (Body, bool)
	// ForEach calls fn for every registered body, used by the engine at
	// phase boundaries to reset/flush the per-body impulse scratch (spec
	// §5: "apply_tmp_impulse... flushed at end of phase via
	// apply_tmp_velocity").
	ForEach(fn func(Body))
}

// StaticRegistry is a fixture Registry/Body implementation: bodies are
// immovable analytic half-space planes or capsules (no integration), giving
// the engine and its tests a concrete collaborator to cut against without a
// full external rigid-body simulator (spec §6 out-of-scope note).
type StaticRegistry struct {
	bodies [MaxBodies]*staticBody
}

// NewStaticRegistry returns an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{}
}

// Get implements Registry.
func (r *StaticRegistry) Get(id int) (Body, bool) {
	if id < 0 || id >= MaxBodies || r.bodies[id] == nil {
		return nil, false
	}
	return r.bodies[id], true
}

// ForEach implements Registry.
func (r *StaticRegistry) ForEach(fn func(Body)) {
	for _, b := range r.bodies {
		if b != nil {
			fn(b)
		}
	}
}

// AddPlane registers an immovable half-space plane (point on the plane,
// outward unit normal) at id, with the given outside/inside friction
// coefficients (spec §6's frictions[0..1]).
func (r *StaticRegistry) AddPlane(id int, point, normal [3]float32, frictionOutside, frictionInside float32) error {
	if id < 0 || id >= MaxBodies {
		return mpmerrors.New(mpmerrors.InvalidConfig, "rigid id %d out of range [0,%d)", id, MaxBodies)
	}
	r.bodies[id] = &staticBody{
		id:        id,
		kind:      shapePlane,
		point:     point,
		normal:    normalize(normal),
		frictions: [2]float32{frictionOutside, frictionInside},
	}
	return nil
}

// AddCapsule registers an immovable capsule (segment endpoints a,b and
// radius) at id, with the given outside/inside friction coefficients.
func (r *StaticRegistry) AddCapsule(id int, a, b [3]float32, radius, frictionOutside, frictionInside float32) error {
	if id < 0 || id >= MaxBodies {
		return mpmerrors.New(mpmerrors.InvalidConfig, "rigid id %d out of range [0,%d)", id, MaxBodies)
	}
	r.bodies[id] = &staticBody{
		id:        id,
		kind:      shapeCapsule,
		point:     a,
		normal:    b, // reused as segment endpoint b for capsules
		radius:    radius,
		frictions: [2]float32{frictionOutside, frictionInside},
	}
	return nil
}

// Distance returns the signed distance from p to the body at id (negative
// inside). The engine does not call it; nothing in this module fills
// GridState.Distance from it. Returns InternalInvariant if id is unregistered.
func (r *StaticRegistry) Distance(id int, p [3]float32) (float32, error) {
	b, ok := r.Get(id)
	if !ok {
		return 0, mpmerrors.New(mpmerrors.InternalInvariant, "rigid id %d not registered", id)
	}
	return b.(*staticBody).distance(p), nil
}

type shapeKind uint8

const (
	shapePlane shapeKind = iota
	shapeCapsule
)

type staticBody struct {
	mu        sync.Mutex
	id        int
	kind      shapeKind
	point     [3]float32 // plane point, or capsule endpoint a
	normal    [3]float32 // plane normal, or capsule endpoint b
	radius    float32    // capsule only
	frictions [2]float32

	tmpImpulse  [3]float32
	tmpCount    int
}

func (b *staticBody) ID() int { return b.id }

func (b *staticBody) Frictions() [2]float32 { return b.frictions }

// VelocityAt is zero everywhere: a static fixture body never moves.
func (b *staticBody) VelocityAt(point [3]float32) [3]float32 { return [3]float32{} }

func (b *staticBody) ApplyTmpImpulse(impulse [3]float32, point [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tmpImpulse {
		b.tmpImpulse[i] += impulse[i]
	}
	b.tmpCount++
}

func (b *staticBody) ResetTmpVelocity() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tmpImpulse = [3]float32{}
	b.tmpCount = 0
}

// ApplyTmpVelocity is a no-op for a static body: there is no integrator to
// advance. Tests read TmpImpulse directly to check accumulation (spec §8
// scenario 5).
func (b *staticBody) ApplyTmpVelocity() {}

// TmpImpulse exposes the accumulated impulse scratch for test assertions.
func (b *staticBody) TmpImpulse() [3]float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tmpImpulse
}

func (b *staticBody) distance(p [3]float32) float32 {
	switch b.kind {
	case shapePlane:
		var d [3]float32
		for i := range d {
			d[i] = p[i] - b.point[i]
		}
		return d[0]*b.normal[0] + d[1]*b.normal[1] + d[2]*b.normal[2]
	case shapeCapsule:
		return capsuleDistance(p, b.point, b.normal, b.radius)
	default:
		return 0
	}
}

func normalize(v [3]float32) [3]float32 {
	n2 := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	if n2 == 0 {
		return v
	}
	inv := invSqrt(n2)
	return [3]float32{v[0] * inv, v[1] * inv, v[2] * inv}
}

func invSqrt(v float32) float32 {
	return float32(1.0 / math.Sqrt(float64(v)))
}

func capsuleDistance(p, a, b [3]float32, radius float32) float32 {
	var ab, ap [3]float32
	for i := range ab {
		ab[i] = b[i] - a[i]
		ap[i] = p[i] - a[i]
	}
	abLen2 := ab[0]*ab[0] + ab[1]*ab[1] + ab[2]*ab[2]
	t := float32(0)
	if abLen2 > 0 {
		t = (ap[0]*ab[0] + ap[1]*ab[1] + ap[2]*ab[2]) / abLen2
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	var closest, d [3]float32
	for i := range closest {
		closest[i] = a[i] + t*ab[i]
		d[i] = p[i] - closest[i]
	}
	dist := math.Sqrt(float64(d[0]*d[0] + d[1]*d[1] + d[2]*d[2]))
	return float32(dist) - radius
}
