// Package synth renders synthetic marker scenes and calibration views with
// known ground truth, so geometric properties of the pipeline can be tested
// against arbitrary jig and camera configurations without hardware.
package synth

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"laser-align/internal/jig"
	"laser-align/internal/marker"
	"laser-align/pkg/geometry"

	"gocv.io/x/gocv"
)

// RenderSheet draws the jig's marker layout as a flat grayscale raster at
// the given resolution, white background, Y flipped into image convention
// (physical bottom-left maps to the raster's bottom-left). The caller owns
// the returned Mat.
func RenderSheet(profile *jig.Profile, pxPerMM float64) (gocv.Mat, error) {
	code, err := marker.DictionaryCode(profile.Dictionary)
	if err != nil {
		return gocv.Mat{}, err
	}

	w := int(math.Round(profile.BoardWidth * pxPerMM))
	h := int(math.Round(profile.BoardHeight * pxPerMM))
	sheet := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), h, w, gocv.MatTypeCV8UC1)

	side := int(math.Round(profile.MarkerSize * pxPerMM))
	for _, m := range profile.Markers {
		img := gocv.NewMat()
		gocv.ArucoGenerateImageMarker(code, m.ID, side, img, 1)

		x0 := int(math.Round((m.X - profile.MarkerSize/2) * pxPerMM))
		y0 := int(math.Round((profile.BoardHeight - m.Y - profile.MarkerSize/2) * pxPerMM))
		if x0 < 0 || y0 < 0 || x0+side > w || y0+side > h {
			img.Close()
			sheet.Close()
			return gocv.Mat{}, fmt.Errorf("marker %d extends outside the board", m.ID)
		}

		region := sheet.Region(image.Rect(x0, y0, x0+side, y0+side))
		img.CopyTo(&region)
		region.Close()
		img.Close()
	}
	return sheet, nil
}

// RenderScene projects the jig sheet into a synthetic camera image through
// the given mm→px homography. Everything outside the board renders white,
// leaving the detector a clean quiet zone. The caller owns the returned Mat.
func RenderScene(profile *jig.Profile, h geometry.Homography, width, height int) (gocv.Mat, error) {
	const pxPerMM = 4.0

	sheet, err := RenderSheet(profile, pxPerMM)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer sheet.Close()

	// Map sheet raster corners to their homography images: the physical
	// corner behind each raster corner, pushed through h.
	sheetCorners := []gocv.Point2f{
		{X: 0, Y: 0},
		{X: float32(sheet.Cols()), Y: 0},
		{X: float32(sheet.Cols()), Y: float32(sheet.Rows())},
		{X: 0, Y: float32(sheet.Rows())},
	}
	physical := []geometry.Point2D{
		{X: 0, Y: profile.BoardHeight},
		{X: profile.BoardWidth, Y: profile.BoardHeight},
		{X: profile.BoardWidth, Y: 0},
		{X: 0, Y: 0},
	}
	sceneCorners := make([]gocv.Point2f, 4)
	for i, p := range physical {
		q := h.Apply(p)
		sceneCorners[i] = gocv.Point2f{X: float32(q.X), Y: float32(q.Y)}
	}

	src := gocv.NewPoint2fVectorFromPoints(sheetCorners)
	defer src.Close()
	dst := gocv.NewPoint2fVectorFromPoints(sceneCorners)
	defer dst.Close()

	warp := gocv.GetPerspectiveTransform2f(src, dst)
	defer warp.Close()

	out := gocv.NewMat()
	gocv.WarpPerspectiveWithParams(sheet, &out, warp, image.Pt(width, height),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return out, nil
}

// ProjectMarkers computes the exact detections the scene should yield:
// marker centers and corners pushed through the ground-truth homography,
// without any detector in the loop.
func ProjectMarkers(profile *jig.Profile, h geometry.Homography) []marker.Detected {
	half := profile.MarkerSize / 2
	out := make([]marker.Detected, 0, len(profile.Markers))
	for _, m := range profile.Markers {
		// Printed top-left corner sits at (x-half, y+half) on the Y-up plane.
		physical := [4]geometry.Point2D{
			{X: m.X - half, Y: m.Y + half},
			{X: m.X + half, Y: m.Y + half},
			{X: m.X + half, Y: m.Y - half},
			{X: m.X - half, Y: m.Y - half},
		}

		var d marker.Detected
		d.ID = m.ID
		d.Valid = true
		for i, p := range physical {
			d.Corners[i] = h.Apply(p)
		}
		d.Center = h.Apply(geometry.Point2D{X: m.X, Y: m.Y})
		out = append(out, d)
	}
	return out
}

// PlaneHomography builds a convenient ground-truth mm→px mapping: uniform
// scale, in-plane rotation, translation, plus an optional perspective skew
// term. With skew zero it is a similarity transform.
func PlaneHomography(scale, rotationRad, tx, ty, skew float64) geometry.Homography {
	cos := math.Cos(rotationRad)
	sin := math.Sin(rotationRad)
	return geometry.Homography{M: [3][3]float64{
		{scale * cos, -scale * sin, tx},
		{scale * sin, scale * cos, ty},
		{skew, skew / 2, 1},
	}}
}

// CameraHomography builds a ground-truth mm→px mapping that includes the
// Y flip a real overhead camera introduces (physical Y up, image Y down).
// Scenes rendered through it keep marker orientation intact, so the real
// detector can read them.
func CameraHomography(scale, rotationRad, tx, ty float64) geometry.Homography {
	cos := math.Cos(rotationRad)
	sin := math.Sin(rotationRad)
	return geometry.Homography{M: [3][3]float64{
		{scale * cos, scale * sin, tx},
		{scale * sin, -scale * cos, ty},
		{0, 0, 1},
	}}
}
