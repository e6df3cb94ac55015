// Command laser-align converts an overhead photo of a marker jig into an
// exactly scaled design export for laser engraving, with an optional
// hand-off to the engraving controller.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"laser-align/internal/calib"
	"laser-align/internal/design"
	"laser-align/internal/jig"
	"laser-align/internal/lightburn"
	"laser-align/internal/pipeline"
	"laser-align/internal/version"
	"laser-align/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Camera snapshot image")
	jigName := flag.String("jig", "default-200", "Registered jig profile name")
	jigPath := flag.String("jig-file", "", "Jig profile JSON (overrides -jig)")
	calibPath := flag.String("calib", "", "Camera calibration profile JSON (optional)")
	designRect := flag.String("design", "", "Design rectangle in mm: x,y,width,height")
	designImage := flag.String("content", "", "Design image file (PNG/JPG)")
	designText := flag.String("text", "", "Text design instead of an image")
	dpi := flag.Float64("dpi", 300, "Export DPI")
	format := flag.String("format", "png", "Export format: png or svg")
	outPath := flag.String("out", "aligned_design.png", "Export output path")
	previewPath := flag.String("preview", "", "Write verification overlay to this path")
	host := flag.String("host", "", "Controller host (default localhost)")
	doSend := flag.Bool("send", false, "Load the export into the controller")
	doStart := flag.Bool("start", false, "Start the job after loading")
	force := flag.Bool("force", false, "Force-load, closing any open file")
	timeout := flag.Duration("timeout", lightburn.DefaultTimeout, "Controller reply timeout")
	debug := flag.Bool("debug", false, "Enable debug output")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("laser-align %s (%s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
		return
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *imagePath == "" || *designRect == "" {
		fmt.Println("Usage: laser-align -image <photo> -design x,y,w,h [-content <png> | -text <text>] [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	rect, err := parseRect(*designRect)
	if err != nil {
		fail(logger, "invalid -design", err)
	}

	var content design.Content
	switch {
	case *designText != "":
		content = design.Text{Text: *designText}
	case *designImage != "":
		content = design.Raster{Path: *designImage}
	default:
		fail(logger, "design content required", fmt.Errorf("pass -content or -text"))
	}

	profile := jig.Get(*jigName)
	if *jigPath != "" {
		profile, err = jig.LoadFromFile(*jigPath)
		if err != nil {
			fail(logger, "load jig profile", err)
		}
	}
	if profile == nil {
		fail(logger, "unknown jig", fmt.Errorf("%q not registered (have %v)", *jigName, jig.List()))
	}

	var calibration *calib.Profile
	if *calibPath != "" {
		calibration, err = calib.LoadFromFile(*calibPath)
		if err != nil {
			fail(logger, "load calibration profile", err)
		}
		logger.Info("calibration loaded",
			"focal_px", calibration.FocalLength(),
			"reproj_err_px", calibration.ReprojError)
	}

	exportFormat, err := design.ParseFormat(*format)
	if err != nil {
		fail(logger, "invalid -format", err)
	}

	snap, err := pipeline.LoadSnapshot(*imagePath)
	if err != nil {
		fail(logger, "load snapshot", err)
	}
	defer snap.Close()

	orch := pipeline.New(profile, calibration, logger)
	orch.Solver.Debug = *debug
	orch.Detector.Debug = *debug

	var send *pipeline.SendOptions
	if *doSend {
		client := lightburn.NewClient(*host)
		client.Timeout = *timeout
		send = &pipeline.SendOptions{Client: client, Force: *force, Start: *doStart}
	}

	start := time.Now()
	outcome, err := orch.Run(snap, design.Spec{Rect: rect, Content: content},
		pipeline.ExportOptions{
			DPI:         *dpi,
			Format:      exportFormat,
			OutPath:     *outPath,
			PreviewPath: *previewPath,
		}, send)
	if err != nil {
		fail(logger, "pipeline failed", err)
	}

	logger.Info("alignment complete",
		"residual_px", outcome.Alignment.MeanResidualPx,
		"export", outcome.Artifact.Path,
		"elapsed", time.Since(start))

	if outcome.Send != nil && outcome.Send.Load.Reply.NoReply {
		// Not a failure: the controller may be slow or the reply dropped.
		logger.Warn("controller did not reply; verify load state manually")
	}
}

// parseRect parses "x,y,w,h" in millimeters.
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("want x,y,width,height, got %q", s)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("bad value %q: %w", p, err)
		}
		vals[i] = v
	}
	return geometry.NewRect(vals[0], vals[1], vals[2], vals[3]), nil
}

func fail(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
