// Command markersheet renders printable patterns at exact physical scale:
// a fiducial marker sheet matching a jig profile, or a chessboard target
// for camera calibration. Printed at 100% the output matches the declared
// millimeter dimensions.
package main

import (
	"flag"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"strings"

	"laser-align/internal/design"
	"laser-align/internal/jig"
	"laser-align/internal/synth"
	"laser-align/pkg/colorutil"

	"gocv.io/x/gocv"
)

func main() {
	jigName := flag.String("jig", "default-200", "Registered jig profile name")
	jigPath := flag.String("jig-file", "", "Jig profile JSON (overrides -jig)")
	boardSize := flag.Float64("board", 0, "Override board size in mm (square)")
	markerSize := flag.Float64("marker", 0, "Override marker size in mm")
	margin := flag.Float64("margin", 10, "Quiet-zone margin around the sheet in mm")
	dpi := flag.Float64("dpi", 300, "Print resolution")
	outPath := flag.String("out", "marker_sheet.png", "Output image path")
	profileOut := flag.String("profile-out", "", "Also write the jig profile JSON here")
	chessboard := flag.String("chessboard", "", "Render a calibration chessboard instead, interior corners COLSxROWS")
	square := flag.Float64("square", 25.0, "Chessboard square size in mm")
	flag.Parse()

	if *chessboard != "" {
		if err := renderChessboard(*chessboard, *square, *margin, *dpi, *outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Chessboard render failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	profile := jig.Get(*jigName)
	var err error
	if *jigPath != "" {
		profile, err = jig.LoadFromFile(*jigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load jig profile: %v\n", err)
			os.Exit(1)
		}
	}
	if profile == nil {
		fmt.Fprintf(os.Stderr, "Unknown jig %q (have %v)\n", *jigName, jig.List())
		os.Exit(1)
	}

	if *boardSize > 0 || *markerSize > 0 {
		profile = customProfile(profile, *boardSize, *markerSize)
		if err := profile.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid custom layout: %v\n", err)
			os.Exit(1)
		}
	}

	if err := renderMarkerSheet(profile, *margin, *dpi, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Sheet render failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Marker sheet: %s\n", *outPath)
	fmt.Printf("  Jig: %s, board %gx%g mm, markers %g mm, dictionary %s\n",
		profile.Name, profile.BoardWidth, profile.BoardHeight,
		profile.MarkerSize, profile.Dictionary)
	fmt.Printf("  Print at 100%% scale (%g DPI embedded)\n", *dpi)

	if *profileOut != "" {
		if err := profile.SaveToFile(*profileOut); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save jig profile: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Profile: %s\n", *profileOut)
	}
}

// customProfile rebuilds a corner-marker layout with overridden board or
// marker sizes, keeping the source profile's dictionary and marker count.
func customProfile(base *jig.Profile, boardSize, markerSize float64) *jig.Profile {
	board := base.BoardWidth
	if boardSize > 0 {
		board = boardSize
	}
	side := base.MarkerSize
	if markerSize > 0 {
		side = markerSize
	}

	half := side / 2
	markers := make([]jig.Marker, len(base.Markers))
	for i, m := range base.Markers {
		markers[i] = m
		// Re-pin corner markers so they stay flush with the new edges.
		if m.X < base.BoardWidth/2 {
			markers[i].X = half
		} else {
			markers[i].X = board - half
		}
		if m.Y < base.BoardHeight/2 {
			markers[i].Y = half
		} else {
			markers[i].Y = board - half
		}
	}

	return &jig.Profile{
		Name:        fmt.Sprintf("custom-%g", board),
		BoardWidth:  board,
		BoardHeight: board,
		Dictionary:  base.Dictionary,
		MarkerSize:  side,
		Markers:     markers,
	}
}

// renderMarkerSheet draws the jig layout with a quiet-zone margin, marker
// id labels, and corner ticks, then writes a PNG carrying the print DPI.
func renderMarkerSheet(profile *jig.Profile, marginMM, dpi float64, outPath string) error {
	pxPerMM := dpi / 25.4

	sheet, err := synth.RenderSheet(profile, pxPerMM)
	if err != nil {
		return err
	}
	defer sheet.Close()

	marginPx := int(math.Round(marginMM * pxPerMM))
	w := sheet.Cols() + 2*marginPx
	h := sheet.Rows() + 2*marginPx

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), h, w, gocv.MatTypeCV8UC1)
	defer canvas.Close()

	region := canvas.Region(image.Rect(marginPx, marginPx, marginPx+sheet.Cols(), marginPx+sheet.Rows()))
	sheet.CopyTo(&region)
	region.Close()

	black := colorutil.Black
	tick := int(math.Round(3 * pxPerMM))
	for _, c := range [][2]int{
		{marginPx, marginPx},
		{marginPx + sheet.Cols(), marginPx},
		{marginPx + sheet.Cols(), marginPx + sheet.Rows()},
		{marginPx, marginPx + sheet.Rows()},
	} {
		gocv.Line(&canvas, image.Pt(c[0]-tick, c[1]), image.Pt(c[0]+tick, c[1]), black, 1)
		gocv.Line(&canvas, image.Pt(c[0], c[1]-tick), image.Pt(c[0], c[1]+tick), black, 1)
	}

	for _, m := range profile.Markers {
		label := strconv.Itoa(m.ID)
		// Below the marker in image coordinates (physical Y runs up).
		x := marginPx + int(math.Round(m.X*pxPerMM))
		y := marginPx + int(math.Round((profile.BoardHeight-m.Y+profile.MarkerSize/2)*pxPerMM))
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.8, 2)
		gocv.PutText(&canvas, label, image.Pt(x-size.X/2, y+size.Y+4),
			gocv.FontHersheySimplex, 0.8, black, 2)
	}

	png, err := design.EncodePNGWithDPI(canvas, dpi)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, png, 0644)
}

// renderChessboard draws a calibration chessboard with the given interior
// corner grid. COLSxROWS interior corners means COLS+1 x ROWS+1 squares.
func renderChessboard(pattern string, squareMM, marginMM, dpi float64, outPath string) error {
	parts := strings.SplitN(strings.ToLower(pattern), "x", 2)
	if len(parts) != 2 {
		return fmt.Errorf("want COLSxROWS, got %q", pattern)
	}
	cols, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	rows, err := strconv.Atoi(parts[1])
	if err != nil {
		return err
	}
	if cols < 2 || rows < 2 {
		return fmt.Errorf("grid too small: %dx%d", cols, rows)
	}

	pxPerMM := dpi / 25.4
	squarePx := int(math.Round(squareMM * pxPerMM))
	marginPx := int(math.Round(marginMM * pxPerMM))
	nx, ny := cols+1, rows+1
	w := nx*squarePx + 2*marginPx
	h := ny*squarePx + 2*marginPx

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), h, w, gocv.MatTypeCV8UC1)
	defer canvas.Close()

	black := colorutil.Black
	for row := 0; row < ny; row++ {
		for col := 0; col < nx; col++ {
			if (row+col)%2 != 0 {
				continue
			}
			x0 := marginPx + col*squarePx
			y0 := marginPx + row*squarePx
			gocv.Rectangle(&canvas, image.Rect(x0, y0, x0+squarePx, y0+squarePx), black, -1)
		}
	}

	png, err := design.EncodePNGWithDPI(canvas, dpi)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, png, 0644); err != nil {
		return err
	}

	fmt.Printf("Chessboard target: %s\n", outPath)
	fmt.Printf("  %dx%d interior corners, %g mm squares, %gx%g mm printed\n",
		cols, rows, squareMM, float64(nx)*squareMM+2*marginMM, float64(ny)*squareMM+2*marginMM)
	fmt.Printf("  Print at 100%% scale (%g DPI embedded)\n", dpi)
	return nil
}
