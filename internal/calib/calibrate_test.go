package calib_test

import (
	"testing"

	"laser-align/internal/calib"
	"laser-align/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCamera = synth.Intrinsics{Fx: 1250, Fy: 1250, Cx: 640, Cy: 480}

func TestCalibrateFromExactViews(t *testing.T) {
	opts := calib.DefaultOptions()
	views := synth.ChessboardViews(opts, testCamera, 20, 0, 7)

	profile, err := calib.CalibrateFromViews(views, 1280, 960, opts)
	require.NoError(t, err)

	assert.Less(t, profile.ReprojError, 0.1,
		"exact observations must calibrate with sub-0.1px error")
	assert.Equal(t, 20, profile.NumViews)
	assert.Equal(t, 1280, profile.ImageWidth)
	assert.Equal(t, 960, profile.ImageHeight)

	// Recovered intrinsics should be close to the generating camera.
	assert.InEpsilon(t, testCamera.Fx, profile.CameraMatrix[0], 0.02)
	assert.InEpsilon(t, testCamera.Fy, profile.CameraMatrix[4], 0.02)
	assert.InDelta(t, testCamera.Cx, profile.CameraMatrix[2], 25)
	assert.InDelta(t, testCamera.Cy, profile.CameraMatrix[5], 25)
}

func TestCalibrateInsufficientViews(t *testing.T) {
	opts := calib.DefaultOptions()
	views := synth.ChessboardViews(opts, testCamera, 3, 0, 7)

	_, err := calib.CalibrateFromViews(views, 1280, 960, opts)
	require.ErrorIs(t, err, calib.ErrInsufficientSamples)
}

func TestCalibrateNoisyViewsExceedCeiling(t *testing.T) {
	opts := calib.DefaultOptions()
	opts.MaxReprojError = 0.5
	views := synth.ChessboardViews(opts, testCamera, 15, 3.0, 7)

	_, err := calib.CalibrateFromViews(views, 1280, 960, opts)
	require.ErrorIs(t, err, calib.ErrHighResidual)
}

func TestCalibrateRejectsMismatchedView(t *testing.T) {
	opts := calib.DefaultOptions()
	views := synth.ChessboardViews(opts, testCamera, 12, 0, 7)
	views[0].Image = views[0].Image[:10]

	_, err := calib.CalibrateFromViews(views, 1280, 960, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestCalibrateInvalidImageSize(t *testing.T) {
	opts := calib.DefaultOptions()
	views := synth.ChessboardViews(opts, testCamera, 12, 0, 7)

	_, err := calib.CalibrateFromViews(views, 0, 0, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid image size")
}
