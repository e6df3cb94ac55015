// Command capture takes camera snapshots for alignment or calibration.
// SPACE captures a frame, ESC finishes. In calibration mode the chessboard
// grid must be visible before a capture is accepted.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"laser-align/internal/calib"
	"laser-align/pkg/colorutil"

	"gocv.io/x/gocv"
)

const (
	keyEscape = 27
	keySpace  = 32
)

func main() {
	device := flag.Int("device", 0, "Camera device id")
	outDir := flag.String("out-dir", ".", "Output directory")
	name := flag.String("name", "snapshot", "Output file base name")
	count := flag.Int("count", 1, "Number of images to capture")
	forCalib := flag.Bool("calibration", false, "Require a visible chessboard grid")
	pattern := flag.String("pattern", "9x6", "Chessboard grid for -calibration mode")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	opts := calib.DefaultOptions()
	cols, rows, err := parsePattern(*pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -pattern: %v\n", err)
		os.Exit(1)
	}
	opts.PatternCols, opts.PatternRows = cols, rows

	cam, err := gocv.OpenVideoCapture(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open camera %d: %v\n", *device, err)
		os.Exit(1)
	}
	defer cam.Close()

	window := gocv.NewWindow("Capture")
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	fmt.Printf("Capturing up to %d image(s). SPACE to capture, ESC to finish.\n", *count)

	captured := 0
	for captured < *count {
		if ok := cam.Read(&frame); !ok || frame.Empty() {
			fmt.Fprintln(os.Stderr, "Camera read failed")
			break
		}

		gridVisible := true
		if *forCalib {
			_, gridVisible = calib.DetectPattern(frame, opts)
		}

		display := frame.Clone()
		status := fmt.Sprintf("Captured: %d/%d - SPACE to capture", captured, *count)
		col := colorutil.Green
		if !gridVisible {
			status = "Move chessboard into view"
			col = colorutil.Red
		}
		gocv.PutText(&display, status, image.Pt(10, 30),
			gocv.FontHersheySimplex, 1, col, 2)
		window.IMShow(display)
		display.Close()

		switch window.WaitKey(1) {
		case keyEscape:
			fmt.Println("Capture stopped")
			return
		case keySpace:
			if !gridVisible {
				continue
			}
			path := filepath.Join(*outDir, fmt.Sprintf("%s_%02d.jpg", *name, captured))
			if ok := gocv.IMWrite(path, frame); !ok {
				fmt.Fprintf(os.Stderr, "Failed to write %s\n", path)
				continue
			}
			captured++
			fmt.Printf("Captured %d/%d: %s\n", captured, *count, path)
		}
	}
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
