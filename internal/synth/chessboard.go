package synth

import (
	"math"
	"math/rand"

	"laser-align/internal/calib"
	"laser-align/pkg/geometry"
)

// Intrinsics is a synthetic pinhole camera: focal lengths and principal
// point in pixels. Zero lens distortion.
type Intrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
}

// Matrix returns the 3x3 intrinsic matrix in row-major order.
func (k Intrinsics) Matrix() [9]float64 {
	return [9]float64{
		k.Fx, 0, k.Cx,
		0, k.Fy, k.Cy,
		0, 0, 1,
	}
}

// ChessboardViews projects the calibration pattern through the pinhole
// camera from n distinct poses, producing exact observations. Poses tilt
// and shift deterministically so the joint solve is well-conditioned.
// noiseSigma adds Gaussian pixel noise (0 for exact views).
func ChessboardViews(opts calib.Options, k Intrinsics, n int, noiseSigma float64, seed int64) []calib.View {
	rng := rand.New(rand.NewSource(seed))

	boardW := float64(opts.PatternCols-1) * opts.SquareSize
	boardH := float64(opts.PatternRows-1) * opts.SquareSize

	views := make([]calib.View, 0, n)
	for i := 0; i < n; i++ {
		f := float64(i) / math.Max(1, float64(n-1))

		// Sweep tilt and position across the set of views.
		rx := -0.35 + 0.7*f
		ry := 0.3 * math.Sin(2*math.Pi*f)
		rz := 0.2 * math.Cos(2*math.Pi*f)
		tx := -boardW/2 + 30*math.Sin(4*math.Pi*f)
		ty := -boardH/2 + 20*math.Cos(4*math.Pi*f)
		tz := 600 + 150*f

		r := rotationMatrix(rx, ry, rz)

		var view calib.View
		for row := 0; row < opts.PatternRows; row++ {
			for col := 0; col < opts.PatternCols; col++ {
				obj := geometry.Point2D{
					X: float64(col) * opts.SquareSize,
					Y: float64(row) * opts.SquareSize,
				}

				// Rotate the planar point (z=0) and translate into camera frame.
				cx := r[0][0]*obj.X + r[0][1]*obj.Y + tx
				cy := r[1][0]*obj.X + r[1][1]*obj.Y + ty
				cz := r[2][0]*obj.X + r[2][1]*obj.Y + tz

				img := geometry.Point2D{
					X: k.Fx*cx/cz + k.Cx,
					Y: k.Fy*cy/cz + k.Cy,
				}
				if noiseSigma > 0 {
					img.X += rng.NormFloat64() * noiseSigma
					img.Y += rng.NormFloat64() * noiseSigma
				}

				view.Object = append(view.Object, obj)
				view.Image = append(view.Image, img)
			}
		}
		views = append(views, view)
	}
	return views
}

// rotationMatrix builds R = Rz * Ry * Rx from Euler angles in radians.
func rotationMatrix(rx, ry, rz float64) [3][3]float64 {
	cx, sx := math.Cos(rx), math.Sin(rx)
	cy, sy := math.Cos(ry), math.Sin(ry)
	cz, sz := math.Cos(rz), math.Sin(rz)

	return [3][3]float64{
		{cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx},
		{sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx},
		{-sy, cy * sx, cy * cx},
	}
}
