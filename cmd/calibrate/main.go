// Command calibrate derives intrinsic camera parameters from chessboard
// pattern images and writes a calibration profile.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"laser-align/internal/calib"
)

func main() {
	imagesArg := flag.String("images", "", "Directory or glob of calibration images")
	pattern := flag.String("pattern", "9x6", "Interior corner grid, cols x rows")
	square := flag.Float64("square", 25.0, "Chessboard square size in mm")
	minViews := flag.Int("min-views", 10, "Minimum accepted views")
	maxErr := flag.Float64("max-error", 1.0, "Maximum mean reprojection error (px)")
	outPath := flag.String("out", "camera.json", "Output calibration profile")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	if *imagesArg == "" {
		fmt.Println("Usage: calibrate -images <dir|glob> [-pattern 9x6] [-square 25] [-out camera.json]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	opts := calib.DefaultOptions()
	opts.SquareSize = *square
	opts.MinViews = *minViews
	opts.MaxReprojError = *maxErr
	opts.Debug = *debug

	cols, rows, err := parsePattern(*pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -pattern: %v\n", err)
		os.Exit(1)
	}
	opts.PatternCols, opts.PatternRows = cols, rows

	paths, err := collectImages(*imagesArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to find images: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "No images found")
		os.Exit(1)
	}

	fmt.Printf("Processing %d calibration images...\n", len(paths))
	profile, err := calib.CalibrateImages(paths, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Calibration failed: %v\n", err)
		os.Exit(1)
	}

	if err := profile.SaveToFile(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Calibration complete\n")
	fmt.Printf("  Views used: %d\n", profile.NumViews)
	fmt.Printf("  Image size: %dx%d\n", profile.ImageWidth, profile.ImageHeight)
	fmt.Printf("  Focal length: %.1f px\n", profile.FocalLength())
	fmt.Printf("  Reprojection error: %.3f px\n", profile.ReprojError)
	fmt.Printf("  Saved: %s\n", *outPath)
}

// parsePattern parses "9x6" into interior corner counts.
func parsePattern(s string) (cols, rows int, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want COLSxROWS, got %q", s)
	}
	cols, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	rows, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if cols < 2 || rows < 2 {
		return 0, 0, fmt.Errorf("grid too small: %dx%d", cols, rows)
	}
	return cols, rows, nil
}

// collectImages expands a directory or glob into image paths.
func collectImages(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err == nil && info.IsDir() {
		var paths []string
		for _, ext := range []string{"*.jpg", "*.jpeg", "*.png", "*.tif", "*.tiff"} {
			matches, _ := filepath.Glob(filepath.Join(arg, ext))
			paths = append(paths, matches...)
		}
		sort.Strings(paths)
		return paths, nil
	}
	matches, err := filepath.Glob(arg)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
