package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(size float64) Polygon {
	return Polygon{Points: []Point{
		{X: 0, Y: 0, Exact: true},
		{X: size, Y: 0, Exact: true},
		{X: size, Y: size, Exact: true},
		{X: 0, Y: size, Exact: true},
	}}
}

func TestAreaSigns(t *testing.T) {
	sq := square(10)
	assert.InDelta(t, 100.0, sq.Area(), 1e-12, "counterclockwise ring should have positive area")

	reversed := Polygon{Points: []Point{
		{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
	}}
	assert.InDelta(t, -100.0, reversed.Area(), 1e-12)
}

func TestNetAreaSubtractsHoles(t *testing.T) {
	outer := square(20)
	outer.Children = []Polygon{{Points: []Point{
		{X: 5, Y: 15}, {X: 15, Y: 15}, {X: 15, Y: 5}, {X: 5, Y: 5},
	}}}
	assert.InDelta(t, 400.0-100.0, outer.NetArea(), 1e-12)
}

func TestRotatePreservesArea(t *testing.T) {
	poly := Polygon{Points: []Point{
		{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 7, Y: 4}, {X: 1, Y: 6},
	}}
	for _, deg := range []float64{0, 45, 90, 137.5, 180, 270, 359} {
		rotated := poly.Rotated(deg)
		assert.InDelta(t, math.Abs(poly.Area()), math.Abs(rotated.Area()), 1e-9, "rotation by %v", deg)
	}
}

func TestRotateRoundTrip(t *testing.T) {
	poly := Polygon{Points: []Point{
		{X: 1, Y: 2, Exact: true}, {X: 8, Y: 3}, {X: 5, Y: 9, Exact: true},
	}}
	back := poly.Rotated(73).Rotated(-73)
	require.Len(t, back.Points, len(poly.Points))
	for i := range poly.Points {
		assert.InDelta(t, poly.Points[i].X, back.Points[i].X, 1e-9)
		assert.InDelta(t, poly.Points[i].Y, back.Points[i].Y, 1e-9)
		assert.Equal(t, poly.Points[i].Exact, back.Points[i].Exact)
	}
}

func TestRotatePreservesMetadata(t *testing.T) {
	poly := square(5)
	poly.Source = 7
	poly.Filename = "bracket"
	poly.Children = []Polygon{{Source: 8, Points: []Point{
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2},
	}}}

	rotated := poly.Rotated(90)
	assert.Equal(t, 7, rotated.Source)
	assert.Equal(t, "bracket", rotated.Filename)
	assert.Equal(t, 90.0, rotated.Rotation)
	require.Len(t, rotated.Children, 1)
	assert.Equal(t, 8, rotated.Children[0].Source)
}

func TestTranslate(t *testing.T) {
	moved := square(10).Translated(3, -2)
	assert.Equal(t, Point{X: 3, Y: -2, Exact: true}, moved.Points[0])
	bb := moved.Bounds()
	assert.Equal(t, Bounds{X: 3, Y: -2, W: 10, H: 10}, bb)
}

func TestBounds(t *testing.T) {
	poly := Polygon{Points: []Point{
		{X: -2, Y: 4}, {X: 6, Y: -1}, {X: 3, Y: 7},
	}}
	bb := poly.Bounds()
	assert.Equal(t, Bounds{X: -2, Y: -1, W: 8, H: 8}, bb)
}

func TestContains(t *testing.T) {
	sq := square(10)

	assert.Equal(t, Inside, sq.Contains(Point{X: 5, Y: 5}))
	assert.Equal(t, Outside, sq.Contains(Point{X: 15, Y: 5}))
	assert.Equal(t, Outside, sq.Contains(Point{X: -0.1, Y: 5}))
	assert.Equal(t, OnBoundary, sq.Contains(Point{X: 0, Y: 5}))
	assert.Equal(t, OnBoundary, sq.Contains(Point{X: 10, Y: 10}))
}

func TestIntersects(t *testing.T) {
	a := square(10)

	overlapping := square(10).Translated(5, 5)
	assert.True(t, a.Intersects(overlapping))

	apart := square(10).Translated(20, 0)
	assert.False(t, a.Intersects(apart))

	contained := square(4).Translated(3, 3)
	assert.True(t, a.Intersects(contained), "containment counts as intersection")
}

func TestIsRectangle(t *testing.T) {
	assert.True(t, square(10).IsRectangle(0))

	tri := Polygon{Points: []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 8}}}
	assert.False(t, tri.IsRectangle(0))

	// rectangle with an extra vertex off its corners is not a pure
	// four-corner rectangle
	notched := Polygon{Points: []Point{
		{X: 0, Y: 0}, {X: 5, Y: 0.5}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}}
	assert.False(t, notched.IsRectangle(0))
}

func TestConvexHull(t *testing.T) {
	pts := []Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		{X: 5, Y: 5}, {X: 2, Y: 3}, // interior points
	}
	hull := ConvexHull(pts)
	require.Len(t, hull, 4)
	assert.InDelta(t, 100.0, math.Abs(RingArea(hull)), 1e-9)

	short := []Point{{X: 1, Y: 2}}
	assert.Equal(t, short, ConvexHull(short))
}

func TestSegmentIntersect(t *testing.T) {
	p, ok := SegmentIntersect(Point{X: 0, Y: 0}, Point{X: 10, Y: 10}, Point{X: 0, Y: 10}, Point{X: 10, Y: 0}, false)
	require.True(t, ok)
	assert.InDelta(t, 5.0, p.X, 1e-12)
	assert.InDelta(t, 5.0, p.Y, 1e-12)

	_, ok = SegmentIntersect(Point{X: 0, Y: 0}, Point{X: 1, Y: 1}, Point{X: 5, Y: 0}, Point{X: 6, Y: 1}, false)
	assert.False(t, ok, "parallel segments never intersect")

	_, ok = SegmentIntersect(Point{X: 0, Y: 0}, Point{X: 1, Y: 0}, Point{X: 3, Y: -1}, Point{X: 3, Y: 1}, false)
	assert.False(t, ok, "intersection outside both segments")

	_, ok = SegmentIntersect(Point{X: 0, Y: 0}, Point{X: 1, Y: 0}, Point{X: 3, Y: -1}, Point{X: 3, Y: 1}, true)
	assert.True(t, ok, "infinite lines do cross")
}

func TestAlmostEqual(t *testing.T) {
	assert.True(t, AlmostEqual(1.0, 1.0+1e-12, 1e-9))
	assert.False(t, AlmostEqual(1.0, 1.001, 1e-9))
}
