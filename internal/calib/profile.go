// Package calib provides camera intrinsic calibration from chessboard
// pattern images and lens-distortion correction using the result.
package calib

import (
	"encoding/json"
	"fmt"
	"image"
	"os"

	"laser-align/pkg/geometry"

	"gocv.io/x/gocv"
)

// Profile holds the intrinsic camera parameters produced by calibration.
// It is immutable once computed and safe to share across invocations.
type Profile struct {
	CameraMatrix [9]float64 `json:"camera_matrix"` // 3x3 row-major
	DistCoeffs   []float64  `json:"distortion_coefficients"`
	ImageWidth   int        `json:"image_width"`
	ImageHeight  int        `json:"image_height"`
	ReprojError  float64    `json:"reprojection_error"` // mean, pixels
	NumViews     int        `json:"num_views"`
}

// Validate checks the profile invariants: invertible intrinsic matrix,
// non-negative reprojection error, positive source resolution.
func (p *Profile) Validate() error {
	k := geometry.HomographyFromSlice(p.CameraMatrix[:])
	if _, ok := k.Inverse(); !ok {
		return fmt.Errorf("intrinsic matrix is singular")
	}
	if p.ReprojError < 0 {
		return fmt.Errorf("reprojection error must be non-negative, got %g", p.ReprojError)
	}
	if p.ImageWidth <= 0 || p.ImageHeight <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", p.ImageWidth, p.ImageHeight)
	}
	return nil
}

// FocalLength returns the X focal length in pixels.
func (p *Profile) FocalLength() float64 {
	return p.CameraMatrix[0]
}

// cameraMat converts the intrinsic matrix to a 3x3 CV64F Mat.
// The caller owns the returned Mat.
func (p *Profile) cameraMat() gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, p.CameraMatrix[i*3+j])
		}
	}
	return m
}

// distMat converts the distortion vector to a 1xN CV64F Mat.
// The caller owns the returned Mat.
func (p *Profile) distMat() gocv.Mat {
	m := gocv.NewMatWithSize(1, len(p.DistCoeffs), gocv.MatTypeCV64F)
	for i, v := range p.DistCoeffs {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

// Undistort corrects lens distortion on an image using the profile. The
// optimal new camera matrix keeps all source pixels (alpha=1), matching
// how snapshots are prepared before marker detection. The caller owns the
// returned Mat.
func (p *Profile) Undistort(src gocv.Mat) gocv.Mat {
	camera := p.cameraMat()
	defer camera.Close()
	dist := p.distMat()
	defer dist.Close()

	size := image.Pt(src.Cols(), src.Rows())
	newCamera, _ := gocv.GetOptimalNewCameraMatrixWithParams(camera, dist, size, 1.0, size, false)
	defer newCamera.Close()

	dst := gocv.NewMat()
	gocv.Undistort(src, &dst, camera, dist, newCamera)
	return dst
}

// SaveToFile saves the profile to a JSON file.
func (p *Profile) SaveToFile(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a profile from a JSON file and validates it.
func LoadFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration profile: %w", err)
	}
	return &p, nil
}
