package calib

import (
	"errors"
	"fmt"
	"image"

	"laser-align/pkg/geometry"

	"gocv.io/x/gocv"
)

// Calibration failure kinds. Matched with errors.Is.
var (
	// ErrInsufficientSamples means too few images contained the full
	// corner grid. The caller should capture more or better images.
	ErrInsufficientSamples = errors.New("insufficient calibration samples")

	// ErrHighResidual means the solved model fits the observations poorly,
	// usually a sign of bad images or lighting. Recapture, don't retry.
	ErrHighResidual = errors.New("calibration reprojection error too high")
)

// Options configures the calibration process.
type Options struct {
	PatternCols    int     // Interior corners per chessboard row
	PatternRows    int     // Interior corners per chessboard column
	SquareSize     float64 // Chessboard square size in mm
	MinViews       int     // Minimum accepted views required to calibrate
	MaxReprojError float64 // Maximum acceptable mean reprojection error (px)
	Debug          bool    // Enable debug output
}

// DefaultOptions returns default calibration options: a 9x6 chessboard of
// 25mm squares, at least 10 accepted views, 1px error ceiling.
func DefaultOptions() Options {
	return Options{
		PatternCols:    9,
		PatternRows:    6,
		SquareSize:     25.0,
		MinViews:       10,
		MaxReprojError: 1.0,
	}
}

// View is one accepted calibration observation: the planar pattern points
// (mm, z=0) and their detected image positions (px).
type View struct {
	Object []geometry.Point2D
	Image  []geometry.Point2D
}

// patternObject returns the canonical chessboard corner grid in mm.
func patternObject(opts Options) []geometry.Point2D {
	pts := make([]geometry.Point2D, 0, opts.PatternCols*opts.PatternRows)
	for r := 0; r < opts.PatternRows; r++ {
		for c := 0; c < opts.PatternCols; c++ {
			pts = append(pts, geometry.Point2D{
				X: float64(c) * opts.SquareSize,
				Y: float64(r) * opts.SquareSize,
			})
		}
	}
	return pts
}

// DetectPattern finds the full chessboard corner grid in one image and
// refines it to sub-pixel accuracy. Returns false if the grid is not
// fully visible.
func DetectPattern(img gocv.Mat, opts Options) ([]geometry.Point2D, bool) {
	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() > 1 {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}

	corners := gocv.NewMat()
	defer corners.Close()

	pattern := image.Pt(opts.PatternCols, opts.PatternRows)
	found := gocv.FindChessboardCorners(gray, pattern, &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	if !found {
		return nil, false
	}

	term := gocv.NewTermCriteria(gocv.MaxIter|gocv.EPS, 30, 0.001)
	gocv.CornerSubPix(gray, &corners, image.Pt(11, 11), image.Pt(-1, -1), term)

	pts := make([]geometry.Point2D, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		pts = append(pts, geometry.Point2D{X: float64(v[0]), Y: float64(v[1])})
	}
	return pts, true
}

// CalibrateImages detects the chessboard in each image file, discards images
// without the full grid, and solves the intrinsic model from the rest.
func CalibrateImages(paths []string, opts Options) (*Profile, error) {
	var views []View
	width, height := 0, 0

	for _, path := range paths {
		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			if opts.Debug {
				fmt.Printf("calibrate: could not load %s\n", path)
			}
			continue
		}

		if width == 0 {
			width, height = img.Cols(), img.Rows()
		}

		pts, found := DetectPattern(img, opts)
		img.Close()
		if !found {
			if opts.Debug {
				fmt.Printf("calibrate: no corner grid in %s\n", path)
			}
			continue
		}

		views = append(views, View{Object: patternObject(opts), Image: pts})
		if opts.Debug {
			fmt.Printf("calibrate: %s: %d corners\n", path, len(pts))
		}
	}

	return CalibrateFromViews(views, width, height, opts)
}

// CalibrateFromViews jointly solves intrinsics, distortion, and per-view
// extrinsics from accepted observations. The pattern is planar, so object
// points carry z=0 implicitly.
func CalibrateFromViews(views []View, width, height int, opts Options) (*Profile, error) {
	if len(views) < opts.MinViews {
		return nil, fmt.Errorf("%w: %d valid views, need %d",
			ErrInsufficientSamples, len(views), opts.MinViews)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	objectPoints := gocv.NewPoints3fVector()
	defer objectPoints.Close()
	imagePoints := gocv.NewPoints2fVector()
	defer imagePoints.Close()

	for _, v := range views {
		if len(v.Object) != len(v.Image) || len(v.Object) == 0 {
			return nil, fmt.Errorf("view point count mismatch: %d vs %d",
				len(v.Object), len(v.Image))
		}

		obj := make([]gocv.Point3f, len(v.Object))
		img := make([]gocv.Point2f, len(v.Image))
		for i := range v.Object {
			obj[i] = gocv.Point3f{X: float32(v.Object[i].X), Y: float32(v.Object[i].Y), Z: 0}
			img[i] = gocv.Point2f{X: float32(v.Image[i].X), Y: float32(v.Image[i].Y)}
		}
		objectPoints.Append(gocv.NewPoint3fVectorFromPoints(obj))
		imagePoints.Append(gocv.NewPoint2fVectorFromPoints(img))
	}

	cameraMatrix := gocv.NewMat()
	defer cameraMatrix.Close()
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	reprojErr := gocv.CalibrateCamera(objectPoints, imagePoints,
		image.Pt(width, height), &cameraMatrix, &distCoeffs, &rvecs, &tvecs, 0)

	profile := &Profile{
		ImageWidth:  width,
		ImageHeight: height,
		ReprojError: reprojErr,
		NumViews:    len(views),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			profile.CameraMatrix[i*3+j] = cameraMatrix.GetDoubleAt(i, j)
		}
	}
	n := distCoeffs.Rows() * distCoeffs.Cols()
	profile.DistCoeffs = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if distCoeffs.Rows() == 1 {
			profile.DistCoeffs = append(profile.DistCoeffs, distCoeffs.GetDoubleAt(0, i))
		} else {
			profile.DistCoeffs = append(profile.DistCoeffs, distCoeffs.GetDoubleAt(i, 0))
		}
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if reprojErr > opts.MaxReprojError {
		return nil, fmt.Errorf("%w: %.3f px exceeds %.3f px",
			ErrHighResidual, reprojErr, opts.MaxReprojError)
	}

	if opts.Debug {
		fmt.Printf("calibrate: %d views, reprojection error %.4f px, focal %.1f px\n",
			len(views), reprojErr, profile.FocalLength())
	}
	return profile, nil
}
