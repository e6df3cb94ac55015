// Package homography estimates the projective mapping between the physical
// reference plane (mm) and the camera image plane (px) from marker
// correspondences, with RANSAC outlier rejection and degeneracy checks.
package homography

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"laser-align/internal/jig"
	"laser-align/internal/marker"
	"laser-align/pkg/geometry"
)

// Solver failure kinds. Matched with errors.Is.
var (
	// ErrInsufficientCorrespondences means fewer than 4 jig markers were
	// found in the image.
	ErrInsufficientCorrespondences = errors.New("insufficient marker correspondences")

	// ErrDegenerateConfiguration means the usable correspondences are
	// (near-)collinear, so the homography is numerically unstable.
	ErrDegenerateConfiguration = errors.New("degenerate marker configuration")

	// ErrHighResidual means the fitted model disagrees with the
	// observations far beyond the configured tolerance.
	ErrHighResidual = errors.New("homography residual error too high")
)

// minCorrespondences is the homography floor: a projective transform has 8
// degrees of freedom, so 4 point pairs are required.
const minCorrespondences = 4

// Options configures homography estimation.
type Options struct {
	RansacIterations int     // Random sample iterations
	InlierThreshold  float64 // Pixel distance for inlier classification
	ResidualCeiling  float64 // Hard sanity bound on mean inlier residual (px)
	CollinearityEps  float64 // Configuration condition below this is degenerate
	Seed             int64   // RANSAC sampling seed (deterministic)
	Debug            bool    // Enable debug output
}

// DefaultOptions returns default solver options. The 5px inlier threshold
// matches the tolerance used for robust estimation in the field; the
// residual ceiling is far above it so it only trips on gross failures.
func DefaultOptions() Options {
	return Options{
		RansacIterations: 2000,
		InlierThreshold:  5.0,
		ResidualCeiling:  250.0,
		CollinearityEps:  1e-6,
		Seed:             1,
	}
}

// Correspondence pairs a jig marker's physical position with its detected
// image position, by shared marker id.
type Correspondence struct {
	ID     int              `json:"id"`
	World  geometry.Point2D `json:"world_mm"`
	Image  geometry.Point2D `json:"image_px"`
	Inlier bool             `json:"inlier"`
}

// Residual is the per-correspondence reprojection error, in both pixel and
// millimeter-equivalent terms. Advisory diagnostics unless the mean exceeds
// the hard ceiling.
type Residual struct {
	ID int     `json:"id"`
	Px float64 `json:"px"`
	MM float64 `json:"mm"`
}

// Result is a solved alignment: the mm→px homography and its inverse,
// per-point diagnostics, and the jig ids that were expected but not seen.
// Owned by the invocation that produced it.
type Result struct {
	H               geometry.Homography `json:"homography"`
	Inverse         geometry.Homography `json:"inverse"`
	Correspondences []Correspondence    `json:"correspondences"`
	Residuals       []Residual          `json:"residuals"`
	MeanResidualPx  float64             `json:"mean_residual_px"`
	MissingIDs      []int               `json:"missing_ids"`
}

// MapToImage maps a physical point (mm) into image pixels.
func (r *Result) MapToImage(p geometry.Point2D) geometry.Point2D {
	return r.H.Apply(p)
}

// MapToWorld maps an image point (px) onto the physical plane (mm).
func (r *Result) MapToWorld(p geometry.Point2D) geometry.Point2D {
	return r.Inverse.Apply(p)
}

// BuildCorrespondences intersects the jig's marker ids with the detected
// set. Detections without a jig entry are ignored; jig entries without a
// detection are reported as missing.
func BuildCorrespondences(profile *jig.Profile, detections []marker.Detected) ([]Correspondence, []int) {
	byID := marker.ByID(detections)
	world := profile.Points()

	var corrs []Correspondence
	var missing []int
	for _, id := range profile.IDs() {
		d, ok := byID[id]
		if !ok || !d.Valid {
			missing = append(missing, id)
			continue
		}
		corrs = append(corrs, Correspondence{
			ID:    id,
			World: world[id],
			Image: d.Center,
		})
	}
	sort.Ints(missing)
	return corrs, missing
}

// Solve estimates the mm→px homography from jig profile and detections.
// Estimation is RANSAC over 4-point subsets: a single mis-detected marker
// corner must not silently corrupt the alignment, so a plain least-squares
// fit is not enough.
func Solve(profile *jig.Profile, detections []marker.Detected, opts Options) (*Result, error) {
	corrs, missing := BuildCorrespondences(profile, detections)

	if len(corrs) < minCorrespondences {
		return nil, fmt.Errorf("%w: %d of %d markers matched (missing ids %v)",
			ErrInsufficientCorrespondences, len(corrs), len(profile.Markers), missing)
	}

	world := make([]geometry.Point2D, len(corrs))
	img := make([]geometry.Point2D, len(corrs))
	for i, c := range corrs {
		world[i] = c.World
		img[i] = c.Image
	}

	if configCondition(world) < opts.CollinearityEps || configCondition(img) < opts.CollinearityEps {
		return nil, fmt.Errorf("%w: correspondence condition below %g",
			ErrDegenerateConfiguration, opts.CollinearityEps)
	}

	h, inliers, err := ransacHomography(world, img, opts)
	if err != nil {
		return nil, err
	}

	// Re-check degeneracy on the surviving inlier set: RANSAC may have
	// discarded the points that made the configuration two-dimensional.
	inlierWorld := make([]geometry.Point2D, 0, len(inliers))
	for _, idx := range inliers {
		inlierWorld = append(inlierWorld, world[idx])
	}
	if configCondition(inlierWorld) < opts.CollinearityEps {
		return nil, fmt.Errorf("%w: inlier condition below %g",
			ErrDegenerateConfiguration, opts.CollinearityEps)
	}

	inv, ok := h.Inverse()
	if !ok {
		return nil, fmt.Errorf("%w: homography is not invertible", ErrDegenerateConfiguration)
	}

	result := &Result{
		H:               h,
		Inverse:         inv,
		Correspondences: corrs,
		MissingIDs:      missing,
	}

	inlierSet := make(map[int]bool, len(inliers))
	for _, idx := range inliers {
		inlierSet[idx] = true
	}

	var sum float64
	var count int
	for i, c := range corrs {
		result.Correspondences[i].Inlier = inlierSet[i]

		projected := h.Apply(c.World)
		px := projected.Distance(c.Image)
		back := inv.Apply(c.Image)
		mm := back.Distance(c.World)
		result.Residuals = append(result.Residuals, Residual{ID: c.ID, Px: px, MM: mm})

		if inlierSet[i] {
			sum += px
			count++
		}
	}
	result.MeanResidualPx = sum / float64(count)

	if result.MeanResidualPx > opts.ResidualCeiling {
		return nil, fmt.Errorf("%w: mean inlier residual %.1f px exceeds %.1f px",
			ErrHighResidual, result.MeanResidualPx, opts.ResidualCeiling)
	}

	if opts.Debug {
		fmt.Printf("homography: %d/%d inliers, mean residual %.3f px, missing %v\n",
			count, len(corrs), result.MeanResidualPx, missing)
	}
	return result, nil
}

// ransacHomography finds the homography with the largest inlier support
// under the pixel threshold, then refits on all inliers.
func ransacHomography(src, dst []geometry.Point2D, opts Options) (geometry.Homography, []int, error) {
	n := len(src)
	rng := rand.New(rand.NewSource(opts.Seed))

	var bestInliers []int
	for iter := 0; iter < opts.RansacIterations; iter++ {
		indices := rng.Perm(n)[:minCorrespondences]

		sample := make([]geometry.Point2D, minCorrespondences)
		target := make([]geometry.Point2D, minCorrespondences)
		for i, idx := range indices {
			sample[i] = src[idx]
			target[i] = dst[idx]
		}

		// Collinear minimal samples produce unstable fits; skip them.
		if configCondition(sample) < opts.CollinearityEps {
			continue
		}

		h, err := fitDLT(sample, target)
		if err != nil {
			continue
		}

		var inliers []int
		for i := range src {
			if h.Apply(src[i]).Distance(dst[i]) < opts.InlierThreshold {
				inliers = append(inliers, i)
			}
		}

		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			if len(bestInliers) == n {
				break
			}
		}
	}

	if len(bestInliers) < minCorrespondences {
		return geometry.Homography{}, nil, fmt.Errorf(
			"%w: RANSAC found only %d consistent correspondences",
			ErrDegenerateConfiguration, len(bestInliers))
	}

	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}

	final, err := fitDLT(inlierSrc, inlierDst)
	if err != nil {
		return geometry.Homography{}, nil, fmt.Errorf("inlier refit: %w", err)
	}
	return final, bestInliers, nil
}
