package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContains(t *testing.T) {
	r := NewRect(10, 10, 100, 50)

	assert.True(t, r.Contains(Point2D{X: 10, Y: 10}))
	assert.True(t, r.Contains(Point2D{X: 110, Y: 60}))
	assert.True(t, r.Contains(Point2D{X: 55, Y: 30}))
	assert.False(t, r.Contains(Point2D{X: 9.9, Y: 30}))
	assert.False(t, r.Contains(Point2D{X: 55, Y: 60.1}))
}

func TestRectContainsRect(t *testing.T) {
	bounds := NewRect(0, 0, 200, 200)

	assert.True(t, bounds.ContainsRect(NewRect(50, 50, 100, 100)))
	assert.True(t, bounds.ContainsRect(bounds))
	assert.False(t, bounds.ContainsRect(NewRect(150, 150, 100, 100)))
	assert.False(t, bounds.ContainsRect(NewRect(-10, 50, 20, 20)))
}

func TestRectCorners(t *testing.T) {
	r := NewRect(10, 20, 30, 40)
	c := r.Corners()
	assert.Equal(t, Point2D{X: 10, Y: 20}, c[0])
	assert.Equal(t, Point2D{X: 40, Y: 20}, c[1])
	assert.Equal(t, Point2D{X: 40, Y: 60}, c[2])
	assert.Equal(t, Point2D{X: 10, Y: 60}, c[3])
}

func TestCentroid(t *testing.T) {
	pts := []Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	c := Centroid(pts)
	assert.InDelta(t, 5.0, c.X, 1e-12)
	assert.InDelta(t, 5.0, c.Y, 1e-12)

	assert.Equal(t, Point2D{}, Centroid(nil))
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{{X: 3, Y: 8}, {X: -2, Y: 1}, {X: 7, Y: 4}}
	box := BoundingBox(pts)
	assert.Equal(t, NewRect(-2, 1, 9, 7), box)
}
