// Package kernel implements the quadratic MLS B-spline stencil (spec §4.C):
// base-cell lookup and the axis-separable 3x3x3 weight stencil.
package kernel

import "math"

// Order is the compile-time MLS kernel order preserved across
// implementations (spec §6): mpm_kernel_order = 2.
const Order = 2

// Weights holds the per-axis quadratic B-spline weights w0, w1, w2 for one
// coordinate axis; the base integer cell lives in Stencil.Base.
type Weights struct {
	W [3]float32
}

// Stencil holds the precomputed axis-separable weights for a particle's
// 3x3x3 support, plus the integer base cell (spec §4.C steps 1-3).
type Stencil struct {
	Base [3]int32
	Frac [3]float32 // f in [0,1)^3
	Axis [3]Weights
}

// Build computes the base cell, fractional offset, and per-axis weights for
// a particle position pos given in grid units (i.e. already multiplied by
// inv_dx), for the first dim axes.
func Build(pos [3]float32, dim int) Stencil {
	var s Stencil
	for a := 0; a < dim; a++ {
		base := floorf(pos[a] - 0.5)
		f := pos[a] - base - 0.5
		s.Base[a] = int32(base)
		s.Frac[a] = f
		s.Axis[a] = axisWeights(f)
	}
	return s
}

func axisWeights(f float32) Weights {
	var w Weights
	h := 0.5 - f
	w.W[0] = 0.5 * h * h
	w.W[1] = 0.75 - f*f
	g := 0.5 + f
	w.W[2] = 0.5 * g * g
	return w
}

// axisGrad returns d(w_i)/df for the three per-axis weights (used by the
// non-MLS stress term stress_dt*grad(w), spec §4.E step 5).
func axisGrad(f float32) Weights {
	var g Weights
	g.W[0] = f - 0.5
	g.W[1] = -2 * f
	g.W[2] = f + 0.5
	return g
}

func floorf(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

// Weight3D returns the stencil weight at integer offset (i,j,k) in
// {0,1,2}^3, the product of the three per-axis weights — the kernel is
// axis-separable, so this is a single 3-multiply, no table lookups.
func (s *Stencil) Weight3D(dim int, i, j, k int) float32 {
	w := s.Axis[0].W[i]
	if dim > 1 {
		w *= s.Axis[1].W[j]
	}
	if dim > 2 {
		w *= s.Axis[2].W[k]
	}
	return w
}

// Dpos returns pos_particle - pos_cell (in grid units) for stencil offset
// (i,j,k), using the base cell and fractional offset already computed by
// Build: dpos_a = (frac_a + 0.5 - i) for offset i along axis a (cell centers are
// at integer grid coordinates base+i, and pos_a = base_a + 0.5 + frac_a).
func (s *Stencil) Dpos(dim int, i, j, k int) [3]float32 {
	var d [3]float32
	offs := [3]int{i, j, k}
	for a := 0; a < dim; a++ {
		d[a] = s.Frac[a] + 0.5 - float32(offs[a])
	}
	return d
}

// Grad3D returns the gradient of the stencil weight at offset (i,j,k) with
// respect to particle position in grid units, scaled by invDx to convert
// back to world units (non-MLS stress term, spec §4.E step 5).
func (s *Stencil) Grad3D(dim int, i, j, k int, invDx float32) [3]float32 {
	widx := [3]int{i, j, k}
	var grad [3]Weights
	for a := 0; a < dim; a++ {
		grad[a] = axisGrad(s.Frac[a])
	}

	var out [3]float32
	for a := 0; a < dim; a++ {
		w := grad[a].W[widx[a]]
		for b := 0; b < dim; b++ {
			if b == a {
				continue
			}
			w *= s.Axis[b].W[widx[b]]
		}
		out[a] = w * invDx
	}
	return out
}

// PartitionOfUnity sums the full 3x3x3 stencil's weights; callers use this
// to pin the "weights sum to one" property (spec §8).
func (s *Stencil) PartitionOfUnity(dim int) float32 {
	var sum float32
	kMax, jMax := 0, 0
	if dim > 2 {
		kMax = 2
	}
	if dim > 1 {
		jMax = 2
	}
	for i := 0; i <= 2; i++ {
		for j := 0; j <= jMax; j++ {
			for k := 0; k <= kMax; k++ {
				sum += s.Weight3D(dim, i, j, k)
			}
		}
	}
	return sum
}
