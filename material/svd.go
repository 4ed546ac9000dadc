package material

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/mlsmpm/particle"
)

// svd3 computes the singular value decomposition F = U*Sigma*V^T for a 3x3
// matrix, grounded on gonum/mat.SVD (the teacher's only direct consumer of
// gonum is a SIMD benchmark, but gonum itself is a direct teacher
// dependency; here it backs the StVK-Hencky / corotated constitutive
// models' polar decomposition, spec §4.G).
func svd3(f particle.Mat3) (u, sigma, v particle.Mat3) {
	var svd mat.SVD
	ok := svd.Factorize(f.ToDense(), mat.SVDFull)
	if !ok {
		// Degenerate F (rank-deficient or non-finite): fall back to
		// identity so callers see a benign, zero-stress state rather than
		// propagating NaNs (spec §7: DomainError "clamp and continue").
		return particle.Identity3(), particle.Identity3(), particle.Identity3()
	}

	var uDense, vDense mat.Dense
	svd.UTo(&uDense)
	svd.VTo(&vDense)
	values := svd.Values(nil)

	u = particle.Mat3FromDense(&uDense)
	v = particle.Mat3FromDense(&vDense)

	// gonum's SVD does not guarantee det(U)=det(V)=+1; flip the last
	// singular vector pair if needed so U,V are proper rotations (required
	// for a physically meaningful corotated frame).
	if u.Det() < 0 {
		for i := 0; i < 3; i++ {
			u[i][2] = -u[i][2]
		}
		values[2] = -values[2]
	}
	if v.Det() < 0 {
		for i := 0; i < 3; i++ {
			v[i][2] = -v[i][2]
		}
		values[2] = -values[2]
	}

	sigma = particle.Mat3{}
	for i := 0; i < 3; i++ {
		sigma[i][i] = float32(values[i])
	}
	return
}

// polarDecompose returns R, S such that F = R*S, R orthonormal and S
// symmetric positive semi-definite (the "corotated" frame used by Jelly,
// Snow and Nonlocal).
func polarDecompose(f particle.Mat3) (r, s particle.Mat3) {
	u, sigma, v := svd3(f)
	r = u.Mul(v.Transpose())
	s = v.Mul(sigma).Mul(v.Transpose())
	return
}
