package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityHomography(t *testing.T) {
	h := IdentityHomography()
	p := Point2D{X: 12.5, Y: -3.25}
	assert.Equal(t, p, h.Apply(p))
	assert.InDelta(t, 1.0, h.Det(), 1e-12)
}

func TestHomographySliceRoundTrip(t *testing.T) {
	v := []float64{2, 0.5, 10, -0.5, 2, 20, 0.001, 0.002, 1}
	h := HomographyFromSlice(v)
	assert.Equal(t, v, h.ToSlice())
}

func TestHomographyApplyProjectiveDivide(t *testing.T) {
	// Pure perspective: w depends on x, so straight scaling does not hold.
	h := Homography{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0.01, 0, 1},
	}}
	p := h.Apply(Point2D{X: 100, Y: 50})
	assert.InDelta(t, 50.0, p.X, 1e-9)
	assert.InDelta(t, 25.0, p.Y, 1e-9)
}

func TestHomographyApplyAtInfinity(t *testing.T) {
	h := Homography{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{1, 0, 0},
	}}
	// w = x, so x=0 maps to the line at infinity.
	p := h.Apply(Point2D{X: 0, Y: 5})
	assert.True(t, math.IsInf(p.X, 1))
	assert.True(t, math.IsInf(p.Y, 1))
}

func TestHomographyCompose(t *testing.T) {
	scale := Homography{M: [3][3]float64{{2, 0, 0}, {0, 2, 0}, {0, 0, 1}}}
	shift := Homography{M: [3][3]float64{{1, 0, 5}, {0, 1, -3}, {0, 0, 1}}}

	// shift applied first, then scale
	combined := scale.Compose(shift)
	p := combined.Apply(Point2D{X: 1, Y: 1})
	assert.InDelta(t, 12.0, p.X, 1e-12)
	assert.InDelta(t, -4.0, p.Y, 1e-12)
}

func TestHomographyInverseRoundTrip(t *testing.T) {
	h := Homography{M: [3][3]float64{
		{1.8, 0.2, 40},
		{-0.3, 2.1, 15},
		{0.0005, -0.0002, 1},
	}}
	inv, ok := h.Inverse()
	require.True(t, ok)

	pts := []Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 57.3, Y: 121.9}, {X: -40, Y: 9}}
	for _, p := range pts {
		back := inv.Apply(h.Apply(p))
		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestHomographyInverseSingular(t *testing.T) {
	// Rank 2: second row is a multiple of the first.
	h := Homography{M: [3][3]float64{
		{1, 2, 3},
		{2, 4, 6},
		{0, 0, 1},
	}}
	_, ok := h.Inverse()
	assert.False(t, ok)
}

func TestHomographyNormalize(t *testing.T) {
	h := Homography{M: [3][3]float64{
		{4, 0, 8},
		{0, 4, 12},
		{0, 0, 2},
	}}
	require.True(t, h.Normalize())
	assert.InDelta(t, 1.0, h.M[2][2], 1e-12)
	assert.InDelta(t, 2.0, h.M[0][0], 1e-12)

	degenerate := Homography{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}}}
	assert.False(t, degenerate.Normalize())
}

func TestHomographyRotation(t *testing.T) {
	angle := math.Pi / 6
	h := Homography{M: [3][3]float64{
		{math.Cos(angle), -math.Sin(angle), 100},
		{math.Sin(angle), math.Cos(angle), 50},
		{0, 0, 1},
	}}
	assert.InDelta(t, angle, h.Rotation(), 1e-9)
}
