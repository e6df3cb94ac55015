package synth

import (
	"testing"

	"laser-align/internal/calib"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChessboardViews(t *testing.T) {
	opts := calib.DefaultOptions()
	k := Intrinsics{Fx: 1000, Fy: 1000, Cx: 640, Cy: 480}

	views := ChessboardViews(opts, k, 8, 0, 1)
	require.Len(t, views, 8)

	for i, v := range views {
		assert.Len(t, v.Object, opts.PatternCols*opts.PatternRows, "view %d", i)
		assert.Len(t, v.Image, len(v.Object), "view %d", i)

		// Planar object points are the canonical grid in every view.
		assert.Equal(t, 0.0, v.Object[0].X)
		assert.Equal(t, opts.SquareSize, v.Object[1].X)
	}

	// Distinct poses must produce distinct projections.
	assert.NotEqual(t, views[0].Image[0], views[7].Image[0])
}

func TestChessboardViewsDeterministic(t *testing.T) {
	opts := calib.DefaultOptions()
	k := Intrinsics{Fx: 1000, Fy: 1000, Cx: 640, Cy: 480}

	a := ChessboardViews(opts, k, 5, 0.5, 42)
	b := ChessboardViews(opts, k, 5, 0.5, 42)
	assert.Equal(t, a, b)

	c := ChessboardViews(opts, k, 5, 0.5, 43)
	assert.NotEqual(t, a, c)
}

func TestIntrinsicsMatrix(t *testing.T) {
	k := Intrinsics{Fx: 1200, Fy: 1150, Cx: 640, Cy: 480}
	m := k.Matrix()
	assert.Equal(t, 1200.0, m[0])
	assert.Equal(t, 1150.0, m[4])
	assert.Equal(t, 640.0, m[2])
	assert.Equal(t, 480.0, m[5])
	assert.Equal(t, 1.0, m[8])
}
