package homography

import (
	"fmt"
	"math"

	"laser-align/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// normalization maps a point set to centroid zero and mean distance sqrt(2)
// (Hartley normalization). This conditions the DLT system.
type normalization struct {
	t geometry.Homography
}

func normalizePoints(pts []geometry.Point2D) ([]geometry.Point2D, normalization) {
	c := geometry.Centroid(pts)

	var meanDist float64
	for _, p := range pts {
		meanDist += p.Distance(c)
	}
	meanDist /= float64(len(pts))

	scale := 1.0
	if meanDist > 1e-12 {
		scale = math.Sqrt2 / meanDist
	}

	t := geometry.Homography{M: [3][3]float64{
		{scale, 0, -scale * c.X},
		{0, scale, -scale * c.Y},
		{0, 0, 1},
	}}

	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out, normalization{t: t}
}

// fitDLT computes the homography mapping src to dst from at least 4 point
// pairs using the normalized direct linear transform. The solution is the
// null vector of the 2n x 9 design matrix, taken from the SVD.
func fitDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n != len(dst) || n < 4 {
		return geometry.Homography{}, fmt.Errorf("need at least 4 point pairs, got %d", n)
	}

	nsrc, tsrc := normalizePoints(src)
	ndst, tdst := normalizePoints(dst)

	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := nsrc[i].X, nsrc[i].Y
		u, v := ndst[i].X, ndst[i].Y

		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	// Full SVD: with 2n < 9 (the minimal 4-point sample) the thin
	// factorization stops at min(m,n) right singular vectors and never
	// produces the null-space column the solution lives in.
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return geometry.Homography{}, fmt.Errorf("SVD factorization failed")
	}

	var v mat.Dense
	svd.VTo(&v)

	// Null space approximation: right singular vector of the smallest
	// singular value (last column of V).
	h := make([]float64, 9)
	last := v.RawMatrix().Cols - 1
	for i := 0; i < 9; i++ {
		h[i] = v.At(i, last)
	}

	norm := geometry.HomographyFromSlice(h)

	// Denormalize: H = Tdst^-1 * Hn * Tsrc
	tdstInv, ok := tdst.t.Inverse()
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate normalization")
	}
	result := tdstInv.Compose(norm).Compose(tsrc.t)
	if !result.Normalize() {
		return geometry.Homography{}, fmt.Errorf("degenerate homography (h22 ~ 0)")
	}
	return result, nil
}

// configCondition measures how well-spread a point configuration is: the
// ratio of the smallest to largest eigenvalue of the centered covariance.
// Near zero means the points are (near-)collinear and a homography fit from
// them is numerically unstable.
func configCondition(pts []geometry.Point2D) float64 {
	if len(pts) < 3 {
		return 0
	}

	c := geometry.Centroid(pts)
	var sxx, sxy, syy float64
	for _, p := range pts {
		dx, dy := p.X-c.X, p.Y-c.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	tr := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := math.Sqrt(math.Max(0, tr*tr/4-det))
	large := tr/2 + disc
	small := tr/2 - disc

	if large <= 0 {
		return 0
	}
	return small / large
}
