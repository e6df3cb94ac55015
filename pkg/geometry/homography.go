package geometry

import (
	"math"
)

// Homography represents a 3x3 projective transformation matrix mapping
// points between two planes.
// [h00 h01 h02]
// [h10 h11 h12]
// [h20 h21 h22]
type Homography struct {
	M [3][3]float64
}

// IdentityHomography returns the identity homography.
func IdentityHomography() Homography {
	return Homography{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}
}

// HomographyFromSlice builds a Homography from 9 values in row-major order.
func HomographyFromSlice(v []float64) Homography {
	var h Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.M[i][j] = v[i*3+j]
		}
	}
	return h
}

// ToSlice returns the matrix as 9 values in row-major order.
func (h Homography) ToSlice() []float64 {
	out := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = h.M[i][j]
		}
	}
	return out
}

// Apply maps a point through the homography, performing the projective divide.
// Points at infinity (w ≈ 0) map to (+Inf, +Inf).
func (h Homography) Apply(p Point2D) Point2D {
	x := h.M[0][0]*p.X + h.M[0][1]*p.Y + h.M[0][2]
	y := h.M[1][0]*p.X + h.M[1][1]*p.Y + h.M[1][2]
	w := h.M[2][0]*p.X + h.M[2][1]*p.Y + h.M[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{X: x / w, Y: y / w}
}

// ApplyAll maps a slice of points through the homography.
func (h Homography) ApplyAll(pts []Point2D) []Point2D {
	out := make([]Point2D, len(pts))
	for i, p := range pts {
		out[i] = h.Apply(p)
	}
	return out
}

// Compose returns this homography composed with another (this * other),
// i.e. other is applied first.
func (h Homography) Compose(other Homography) Homography {
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += h.M[i][k] * other.M[k][j]
			}
			out.M[i][j] = sum
		}
	}
	return out
}

// Det returns the determinant of the matrix.
func (h Homography) Det() float64 {
	m := h.M
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse homography, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	det := h.Det()
	if math.Abs(det) < 1e-12 {
		return Homography{}, false
	}

	m := h.M
	invDet := 1.0 / det
	var out Homography
	out.M[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	out.M[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	out.M[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	out.M[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	out.M[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	out.M[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	out.M[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	out.M[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	out.M[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return out, true
}

// Normalize scales the matrix so that h22 == 1. Returns false if h22 is
// (near) zero, in which case the homography is left unchanged.
func (h *Homography) Normalize() bool {
	if math.Abs(h.M[2][2]) < 1e-12 {
		return false
	}
	s := 1.0 / h.M[2][2]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.M[i][j] *= s
		}
	}
	return true
}

// Rotation returns the in-plane rotation (radians) implied by the mapping
// of the X axis direction at the origin. Useful for reporting how far the
// reference plane is rotated relative to the image axes.
func (h Homography) Rotation() float64 {
	o := h.Apply(Point2D{})
	x := h.Apply(Point2D{X: 1})
	return math.Atan2(x.Y-o.Y, x.X-o.X)
}
