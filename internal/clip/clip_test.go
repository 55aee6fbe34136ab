package clip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/deepnest/internal/geom"
)

func rect(x, y, w, h float64) []geom.Point {
	return []geom.Point{
		{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h},
	}
}

func totalArea(paths [][]geom.Point) float64 {
	var area float64
	for _, p := range paths {
		area += geom.RingArea(p)
	}
	return math.Abs(area)
}

func TestUnionOverlappingSquares(t *testing.T) {
	result := Union([][]geom.Point{rect(0, 0, 10, 10)}, [][]geom.Point{rect(5, 0, 10, 10)}, DefaultScale, NonZero)
	require.NotEmpty(t, result)
	assert.InDelta(t, 150.0, totalArea(result), 1e-6)
}

func TestUnionWithEmptySides(t *testing.T) {
	subject := [][]geom.Point{rect(0, 0, 10, 10)}
	assert.InDelta(t, 100.0, totalArea(Union(subject, nil, DefaultScale, NonZero)), 1e-6)
	assert.InDelta(t, 100.0, totalArea(Union(nil, subject, DefaultScale, NonZero)), 1e-6)
	assert.Empty(t, Union(nil, nil, DefaultScale, NonZero))
}

func TestDifference(t *testing.T) {
	result := Difference([][]geom.Point{rect(0, 0, 10, 10)}, [][]geom.Point{rect(0, 0, 5, 10)}, DefaultScale, EvenOdd)
	require.NotEmpty(t, result)
	assert.InDelta(t, 50.0, totalArea(result), 1e-6)

	// subtracting a disjoint region changes nothing
	result = Difference([][]geom.Point{rect(0, 0, 10, 10)}, [][]geom.Point{rect(50, 50, 5, 5)}, DefaultScale, EvenOdd)
	assert.InDelta(t, 100.0, totalArea(result), 1e-6)

	// subtracting a covering region leaves nothing
	result = Difference([][]geom.Point{rect(2, 2, 4, 4)}, [][]geom.Point{rect(0, 0, 10, 10)}, DefaultScale, EvenOdd)
	assert.Empty(t, result)
}

func TestIntersects(t *testing.T) {
	assert.True(t, Intersects(rect(0, 0, 10, 10), rect(5, 5, 10, 10), DefaultScale))
	assert.False(t, Intersects(rect(0, 0, 10, 10), rect(20, 0, 10, 10), DefaultScale))

	// sharing only an edge is not an overlap
	assert.False(t, Intersects(rect(0, 0, 10, 10), rect(10, 0, 10, 10), DefaultScale))
}

func TestMinkowskiSumSquares(t *testing.T) {
	a := rect(0, 0, 10, 10)
	b := []geom.Point{{X: 0, Y: 0}, {X: -10, Y: 0}, {X: -10, Y: -10}, {X: 0, Y: -10}}

	components := MinkowskiSum(a, b, DefaultScale)
	require.NotEmpty(t, components)

	// the largest component bounds the full swept region [-10,10]^2
	best := components[0]
	for _, c := range components[1:] {
		if math.Abs(geom.RingArea(c)) > math.Abs(geom.RingArea(best)) {
			best = c
		}
	}
	bb := geom.RingBounds(best)
	assert.InDelta(t, -10.0, bb.X, 1e-6)
	assert.InDelta(t, -10.0, bb.Y, 1e-6)
	assert.InDelta(t, 20.0, bb.W, 1e-6)
	assert.InDelta(t, 20.0, bb.H, 1e-6)
	assert.InDelta(t, 400.0, math.Abs(geom.RingArea(best)), 1e-6)
}

func TestMinkowskiSumDegenerateInput(t *testing.T) {
	assert.Nil(t, MinkowskiSum(rect(0, 0, 10, 10), []geom.Point{{X: 0, Y: 0}}, DefaultScale))
	assert.Nil(t, MinkowskiSum(nil, rect(0, 0, 10, 10), DefaultScale))
}
