package particle

import "gonum.org/v1/gonum/mat"

// Mul returns a*b (matrix product).
func (a Mat3) Mul(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			r[i][j] = sum
		}
	}
	return r
}

// Add returns a+b.
func (a Mat3) Add(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] + b[i][j]
		}
	}
	return r
}

// Sub returns a-b.
func (a Mat3) Sub(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] - b[i][j]
		}
	}
	return r
}

// Scale returns a*s.
func (a Mat3) Scale(s float32) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] * s
		}
	}
	return r
}

// Transpose returns a^T.
func (a Mat3) Transpose() Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[j][i] = a[i][j]
		}
	}
	return r
}

// Trace returns the sum of the diagonal.
func (a Mat3) Trace() float32 {
	return a[0][0] + a[1][1] + a[2][2]
}

// Det returns the determinant.
func (a Mat3) Det() float32 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// Inverse returns a^-1 via the cofactor formula; returns the zero matrix if
// a is singular (det below eps), so callers must guard degenerate F
// themselves (constitutive models clamp Sigma before this ever matters).
func (a Mat3) Inverse() Mat3 {
	det := a.Det()
	if det > -1e-12 && det < 1e-12 {
		return Mat3{}
	}
	invDet := 1 / det
	var r Mat3
	r[0][0] = (a[1][1]*a[2][2] - a[1][2]*a[2][1]) * invDet
	r[0][1] = (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * invDet
	r[0][2] = (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * invDet
	r[1][0] = (a[1][2]*a[2][0] - a[1][0]*a[2][2]) * invDet
	r[1][1] = (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * invDet
	r[1][2] = (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * invDet
	r[2][0] = (a[1][0]*a[2][1] - a[1][1]*a[2][0]) * invDet
	r[2][1] = (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * invDet
	r[2][2] = (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * invDet
	return r
}

// MulVec returns a*v.
func (a Mat3) MulVec(v [3]float32) [3]float32 {
	var r [3]float32
	for i := 0; i < 3; i++ {
		r[i] = a[i][0]*v[0] + a[i][1]*v[1] + a[i][2]*v[2]
	}
	return r
}

// ToDense converts a to a gonum *mat.Dense for SVD/polar decomposition.
func (a Mat3) ToDense() *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.Set(i, j, float64(a[i][j]))
		}
	}
	return d
}

// Mat3FromDense converts a 3x3 gonum *mat.Dense back to a Mat3.
func Mat3FromDense(d mat.Matrix) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = float32(d.At(i, j))
		}
	}
	return r
}
