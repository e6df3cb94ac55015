// Package marker finds fiducial (ArUco) markers and their pixel corners in
// an image. Detection is a pure function of image and options; missing
// expected ids are represented by absence, and sufficiency is judged by the
// caller.
package marker

import (
	"fmt"

	"laser-align/internal/calib"
	"laser-align/pkg/geometry"

	"gocv.io/x/gocv"
)

// Sub-pixel corner refinement method for the ArUco detector
// (cv::aruco::CORNER_REFINE_SUBPIX). Coarse detection alone is not accurate
// enough for sub-millimeter placement.
const cornerRefineSubpix = 1

// Detected is one fiducial marker found in an image. Corners are in pixel
// coordinates, in the detector's order (top-left, top-right, bottom-right,
// bottom-left as printed on the marker).
type Detected struct {
	ID      int                 `json:"id"`
	Corners [4]geometry.Point2D `json:"corners"`
	Center  geometry.Point2D    `json:"center"`
	Valid   bool                `json:"valid"`
}

// Options configures marker detection.
type Options struct {
	Dictionary  string         // Marker dictionary name, e.g. "DICT_4X4_50"
	Calibration *calib.Profile // Optional: undistort before detecting
	Debug       bool           // Enable debug output
}

// DefaultOptions returns default detection options.
func DefaultOptions() Options {
	return Options{
		Dictionary: "DICT_4X4_50",
	}
}

var dictionaryCodes = map[string]gocv.ArucoDictionaryCode{
	"DICT_4X4_50":        gocv.ArucoDict4x4_50,
	"DICT_4X4_100":       gocv.ArucoDict4x4_100,
	"DICT_4X4_250":       gocv.ArucoDict4x4_250,
	"DICT_4X4_1000":      gocv.ArucoDict4x4_1000,
	"DICT_5X5_50":        gocv.ArucoDict5x5_50,
	"DICT_5X5_100":       gocv.ArucoDict5x5_100,
	"DICT_5X5_250":       gocv.ArucoDict5x5_250,
	"DICT_5X5_1000":      gocv.ArucoDict5x5_1000,
	"DICT_6X6_50":        gocv.ArucoDict6x6_50,
	"DICT_6X6_100":       gocv.ArucoDict6x6_100,
	"DICT_6X6_250":       gocv.ArucoDict6x6_250,
	"DICT_6X6_1000":      gocv.ArucoDict6x6_1000,
	"DICT_ARUCO_ORIGINAL": gocv.ArucoDictArucoOriginal,
}

// DictionaryCode maps a dictionary name to its gocv code.
func DictionaryCode(name string) (gocv.ArucoDictionaryCode, error) {
	code, ok := dictionaryCodes[name]
	if !ok {
		return 0, fmt.Errorf("unknown marker dictionary %q", name)
	}
	return code, nil
}

// Detect finds all markers of the configured dictionary in the image.
// Non-detection of some expected ids is not an error here: the result is
// whatever set was found. The input Mat is not modified.
func Detect(img gocv.Mat, opts Options) ([]Detected, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty input image")
	}

	code, err := DictionaryCode(opts.Dictionary)
	if err != nil {
		return nil, err
	}

	work := img
	var undistorted gocv.Mat
	if opts.Calibration != nil {
		undistorted = opts.Calibration.Undistort(img)
		defer undistorted.Close()
		work = undistorted
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if work.Channels() > 1 {
		gocv.CvtColor(work, &gray, gocv.ColorBGRToGray)
	} else {
		work.CopyTo(&gray)
	}

	params := gocv.NewArucoDetectorParameters()
	params.SetCornerRefinementMethod(cornerRefineSubpix)

	detector := gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(code), params)
	defer detector.Close()

	corners, ids, _ := detector.DetectMarkers(gray)

	detections := make([]Detected, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}

		var d Detected
		d.ID = id
		d.Valid = true
		var sumX, sumY float64
		for j, c := range corners[i] {
			d.Corners[j] = geometry.Point2D{X: float64(c.X), Y: float64(c.Y)}
			sumX += float64(c.X)
			sumY += float64(c.Y)
		}
		d.Center = geometry.Point2D{X: sumX / 4, Y: sumY / 4}
		detections = append(detections, d)
	}

	if opts.Debug {
		found := make([]int, len(detections))
		for i, d := range detections {
			found[i] = d.ID
		}
		fmt.Printf("marker: detected %d markers %v\n", len(detections), found)
	}
	return detections, nil
}

// ByID indexes detections by marker id.
func ByID(detections []Detected) map[int]Detected {
	m := make(map[int]Detected, len(detections))
	for _, d := range detections {
		m[d.ID] = d
	}
	return m
}
