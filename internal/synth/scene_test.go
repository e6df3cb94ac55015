package synth

import (
	"math"
	"testing"

	"laser-align/internal/jig"
	"laser-align/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSheetDimensions(t *testing.T) {
	profile := jig.Default200()

	sheet, err := RenderSheet(profile, 4.0)
	require.NoError(t, err)
	defer sheet.Close()

	assert.Equal(t, 800, sheet.Cols())
	assert.Equal(t, 800, sheet.Rows())

	// Marker 0 sits at the physical bottom-left, so its black modules land
	// in the lower-left of the Y-flipped raster.
	assert.Less(t, int(sheet.GetUCharAt(799, 0)), 128)
	// The board center is empty.
	assert.Equal(t, uint8(255), sheet.GetUCharAt(400, 400))
}

func TestRenderSheetMarkerOutsideBoard(t *testing.T) {
	profile := jig.Default200()
	profile.Markers[0].X = -5

	_, err := RenderSheet(profile, 4.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the board")
}

func TestRenderSheetUnknownDictionary(t *testing.T) {
	profile := jig.Default200()
	profile.Dictionary = "DICT_BOGUS"

	_, err := RenderSheet(profile, 4.0)
	require.Error(t, err)
}

func TestProjectMarkersIdentity(t *testing.T) {
	profile := jig.Default200()
	detections := ProjectMarkers(profile, geometry.IdentityHomography())

	require.Len(t, detections, 4)
	for i, d := range detections {
		m := profile.Markers[i]
		assert.Equal(t, m.ID, d.ID)
		assert.True(t, d.Valid)
		assert.Equal(t, geometry.Point2D{X: m.X, Y: m.Y}, d.Center)

		// Corners straddle the center at half the marker size.
		half := profile.MarkerSize / 2
		assert.Equal(t, geometry.Point2D{X: m.X - half, Y: m.Y + half}, d.Corners[0])
		assert.Equal(t, geometry.Point2D{X: m.X + half, Y: m.Y - half}, d.Corners[2])
	}
}

func TestPlaneHomographySimilarity(t *testing.T) {
	h := PlaneHomography(2.0, math.Pi/2, 10, 20, 0)

	p := h.Apply(geometry.Point2D{X: 1, Y: 0})
	assert.InDelta(t, 10.0, p.X, 1e-9)
	assert.InDelta(t, 22.0, p.Y, 1e-9)

	// Orientation preserving.
	assert.Greater(t, h.Det(), 0.0)
}

func TestCameraHomographyFlipsOrientation(t *testing.T) {
	h := CameraHomography(3.0, 0.1, 100, 700)

	// A camera looking down at a Y-up plane reverses orientation.
	assert.Less(t, h.Det(), 0.0)

	// Larger physical Y means smaller image Y.
	lo := h.Apply(geometry.Point2D{X: 100, Y: 10})
	hi := h.Apply(geometry.Point2D{X: 100, Y: 190})
	assert.Greater(t, lo.Y, hi.Y)
}
