// Package pipeline sequences detection, homography solving, design export,
// and controller dispatch into one synchronous pipeline with structured
// stage-tagged outcomes.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"laser-align/internal/calib"
	"laser-align/internal/design"
	"laser-align/internal/homography"
	"laser-align/internal/jig"
	"laser-align/internal/lightburn"
	"laser-align/internal/marker"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Stage identifies which pipeline stage produced a failure.
type Stage string

const (
	StageDetect Stage = "detect"
	StageSolve  Stage = "solve"
	StageExport Stage = "export"
	StageSend   Stage = "send"
)

// StageError tags a failure with the stage it happened in. Any stage
// failure aborts subsequent stages; the pipeline never reports a partial
// or ambiguous success.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Snapshot is one captured camera image with a unique identity. The
// identity keys cached alignments, so a swapped image can never be served
// a stale result.
type Snapshot struct {
	ID   uuid.UUID
	Path string
	Mat  gocv.Mat
}

// LoadSnapshot reads an image file and assigns it a fresh identity.
// The caller owns the snapshot and must Close it.
func LoadSnapshot(path string) (*Snapshot, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	if m.Empty() {
		return nil, fmt.Errorf("could not load image: %s", path)
	}
	return &Snapshot{ID: uuid.New(), Path: path, Mat: m}, nil
}

// Close releases the snapshot's image memory.
func (s *Snapshot) Close() {
	s.Mat.Close()
}

// cacheKey is the explicit (jig profile identity, image identity) pair
// that gates alignment reuse.
type cacheKey struct {
	jigFingerprint string
	imageID        uuid.UUID
}

// Orchestrator runs the alignment pipeline. A single invocation is
// synchronous and owns its mutable state; the jig and calibration profiles
// are read-only and may be shared.
type Orchestrator struct {
	Jig         *jig.Profile
	Calibration *calib.Profile // optional lens correction
	Detector    marker.Options
	Solver      homography.Options
	Logger      *slog.Logger

	cache map[cacheKey]*homography.Result
}

// New creates an orchestrator for one jig profile.
func New(profile *jig.Profile, calibration *calib.Profile, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	detector := marker.DefaultOptions()
	if profile.Dictionary != "" {
		detector.Dictionary = profile.Dictionary
	}
	detector.Calibration = calibration

	return &Orchestrator{
		Jig:         profile,
		Calibration: calibration,
		Detector:    detector,
		Solver:      homography.DefaultOptions(),
		Logger:      logger,
		cache:       make(map[cacheKey]*homography.Result),
	}
}

// SetJig swaps the jig profile and invalidates every cached alignment:
// results solved against another jig must never be reused.
func (o *Orchestrator) SetJig(profile *jig.Profile) {
	o.Jig = profile
	if profile.Dictionary != "" {
		o.Detector.Dictionary = profile.Dictionary
	}
	o.cache = make(map[cacheKey]*homography.Result)
}

// Align detects markers and solves the homography for a snapshot. The
// result is cached under the explicit (jig, image) key, so repeated calls
// with the same snapshot reuse it and any other pairing recomputes.
func (o *Orchestrator) Align(snap *Snapshot) (*homography.Result, error) {
	key := cacheKey{jigFingerprint: o.Jig.Fingerprint(), imageID: snap.ID}
	if cached, ok := o.cache[key]; ok {
		o.Logger.Debug("alignment cache hit", "image", snap.ID, "jig", o.Jig.Name)
		return cached, nil
	}

	start := time.Now()
	detections, err := marker.Detect(snap.Mat, o.Detector)
	if err != nil {
		return nil, stageErr(StageDetect, err)
	}
	o.Logger.Info("markers detected",
		"count", len(detections), "expected", len(o.Jig.Markers),
		"elapsed", time.Since(start))

	result, err := homography.Solve(o.Jig, detections, o.Solver)
	if err != nil {
		return nil, stageErr(StageSolve, err)
	}
	if len(result.MissingIDs) > 0 {
		// Advisory only: enough correspondences remained.
		o.Logger.Warn("expected markers missing", "ids", result.MissingIDs)
	}
	o.Logger.Info("homography solved",
		"mean_residual_px", result.MeanResidualPx,
		"missing", len(result.MissingIDs))

	o.cache[key] = result
	return result, nil
}

// ExportOptions configures the export stage of a run.
type ExportOptions struct {
	DPI         float64
	Format      design.Format
	OutPath     string
	PreviewPath string // empty disables the verification overlay
}

// SendOptions configures the optional controller dispatch stage.
type SendOptions struct {
	Client         *lightburn.Client
	Force          bool
	Start          bool
	StartOnNoReply bool
}

// Outcome is the structured result of a pipeline run.
type Outcome struct {
	Alignment *homography.Result
	Artifact  *design.Artifact
	Preview   string
	Send      *lightburn.LoadStartOutcome
}

// Run executes the full pipeline for one design against one snapshot:
// detect → solve → export → optional send. The first failing stage aborts
// the rest and is identified in the returned error.
func (o *Orchestrator) Run(snap *Snapshot, spec design.Spec, export ExportOptions, send *SendOptions) (*Outcome, error) {
	result, err := o.Align(snap)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Alignment: result}

	if !o.Jig.Bounds().ContainsRect(spec.Rect) {
		// The device, not this system, is the final arbiter of bed limits.
		o.Logger.Warn("design rectangle extends outside jig bounds",
			"design", spec.Rect, "bounds", o.Jig.Bounds())
	}

	artifact, err := design.Export(spec, export.DPI, export.Format, export.OutPath)
	if err != nil {
		return outcome, stageErr(StageExport, err)
	}
	outcome.Artifact = artifact
	o.Logger.Info("design exported",
		"path", artifact.Path, "format", artifact.Format,
		"size_mm", fmt.Sprintf("%gx%g", artifact.WidthMM, artifact.HeightMM),
		"size_px", fmt.Sprintf("%dx%d", artifact.WidthPx, artifact.HeightPx),
		"dpi", artifact.DPI)

	if export.PreviewPath != "" {
		preview := design.RenderPreview(snap.Mat, result, o.Jig, spec.Rect)
		ok := gocv.IMWrite(export.PreviewPath, preview)
		preview.Close()
		if !ok {
			return outcome, stageErr(StageExport,
				fmt.Errorf("could not write preview: %s", export.PreviewPath))
		}
		outcome.Preview = export.PreviewPath
	}

	if send != nil && send.Client != nil {
		var sendOut lightburn.LoadStartOutcome
		if send.Start {
			sendOut, err = send.Client.LoadAndStart(artifact.Path, send.Force, send.StartOnNoReply)
		} else {
			cmd := lightburn.LoadFile(artifact.Path)
			if send.Force {
				cmd = lightburn.ForceLoad(artifact.Path)
			}
			var reply lightburn.Reply
			reply, err = send.Client.Send(cmd)
			sendOut.Load = lightburn.PhaseOutcome{Command: cmd, Reply: reply, Attempted: true}
		}
		outcome.Send = &sendOut
		if err != nil {
			return outcome, stageErr(StageSend, err)
		}
		if sendOut.Load.Reply.NoReply {
			// A lost reply is an expected outcome on this channel, not a
			// pipeline failure.
			o.Logger.Warn("no reply from controller; load state unknown")
		} else {
			o.Logger.Info("artifact sent",
				"loaded", sendOut.Loaded(), "started", sendOut.Started())
		}
	}

	return outcome, nil
}
