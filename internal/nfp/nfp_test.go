package nfp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/deepnest/internal/clip"
	"github.com/piwi3910/deepnest/internal/geom"
)

func squarePoly(size float64, source int) geom.Polygon {
	return geom.Polygon{
		Source: source,
		Points: []geom.Point{
			{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size},
		},
	}
}

func TestMinkowskiNFPSquares(t *testing.T) {
	a := squarePoly(10, 0)
	b := squarePoly(10, 1)

	result, ok := MinkowskiNFP(a, b, clip.DefaultScale)
	require.True(t, ok)

	bb := geom.RingBounds(result.Points)
	assert.InDelta(t, -10.0, bb.X, 1e-6)
	assert.InDelta(t, -10.0, bb.Y, 1e-6)
	assert.InDelta(t, 20.0, bb.W, 1e-6)
	assert.InDelta(t, 20.0, bb.H, 1e-6)
}

// Every NFP vertex must be a position where B touches A without
// strict overlap.
func TestMinkowskiNFPVerticesDoNotOverlap(t *testing.T) {
	a := squarePoly(10, 0)
	b := geom.Polygon{Source: 1, Points: []geom.Point{
		{X: 0, Y: 0}, {X: 6, Y: 0}, {X: 6, Y: 4}, {X: 0, Y: 4},
	}}

	result, ok := MinkowskiNFP(a, b, clip.DefaultScale)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(result.Points), 4)

	for _, v := range result.Points {
		shifted := b.Translated(v.X-b.Points[0].X, v.Y-b.Points[0].Y)
		assert.False(t, clip.Intersects(a.Points, shifted.Points, clip.DefaultScale),
			"B at NFP vertex (%v, %v) must not overlap A", v.X, v.Y)
	}
}

// A pocketed part whose cavity is reachable only through a channel
// narrower than B: the Minkowski sum then has several components (the
// outer boundary, the strict-interior region, the enclosed cavity),
// and the selection must return the clockwise outer boundary, not one
// of the enclosed components.
func TestMinkowskiNFPSelectsBoundaryAmongComponents(t *testing.T) {
	pocket := geom.Polygon{Source: 0, Points: []geom.Point{
		{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 30}, {X: 0, Y: 30},
		{X: 0, Y: 16}, {X: 10, Y: 16}, {X: 10, Y: 20}, {X: 20, Y: 20},
		{X: 20, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 14}, {X: 0, Y: 14},
	}}
	b := squarePoly(4, 1)

	result, ok := MinkowskiNFP(pocket, b, clip.DefaultScale)
	require.True(t, ok)

	bb := geom.RingBounds(result.Points)
	assert.InDelta(t, -4.0, bb.X, 1e-6)
	assert.InDelta(t, -4.0, bb.Y, 1e-6)
	assert.InDelta(t, 34.0, bb.W, 1e-6)
	assert.InDelta(t, 34.0, bb.H, 1e-6)

	// the selected boundary is clockwise per the signed criterion
	assert.Negative(t, geom.RingArea(result.Points))

	for _, v := range result.Points {
		shifted := b.Translated(v.X-b.Points[0].X, v.Y-b.Points[0].Y)
		assert.False(t, clip.Intersects(pocket.Points, shifted.Points, clip.DefaultScale),
			"B at boundary vertex (%v, %v) must not overlap A", v.X, v.Y)
	}
}

func TestRectangleInnerNFP(t *testing.T) {
	sheet := squarePoly(100, 0)
	part := squarePoly(10, 1)

	ring, ok := rectangleInnerNFP(sheet.Points, part.Points)
	require.True(t, ok)
	bb := geom.RingBounds(ring)
	assert.InDelta(t, 0.0, bb.X, 1e-9)
	assert.InDelta(t, 0.0, bb.Y, 1e-9)
	assert.InDelta(t, 90.0, bb.W, 1e-9)
	assert.InDelta(t, 90.0, bb.H, 1e-9)

	// exact fit degenerates to a single position
	line, ok := rectangleInnerNFP(sheet.Points, squarePoly(100, 2).Points)
	require.True(t, ok)
	assert.InDelta(t, 0.0, geom.RingBounds(line).W, 1e-9)

	// too large to fit
	_, ok = rectangleInnerNFP(squarePoly(10, 0).Points, squarePoly(20, 1).Points)
	assert.False(t, ok)
}

func TestEngineInnerNFPRectSheet(t *testing.T) {
	eng := NewEngine(NewCache(), clip.DefaultScale)
	sheet := squarePoly(100, 5)
	part := squarePoly(10, 6)

	regions, ok := eng.InnerNFP(sheet, part)
	require.True(t, ok)
	require.Len(t, regions, 1)
	bb := geom.RingBounds(regions[0].Points)
	assert.InDelta(t, 90.0, bb.W, 1e-6)
	assert.InDelta(t, 90.0, bb.H, 1e-6)

	// second call is served from the cache
	assert.Equal(t, 1, eng.Cache().Stats())
	again, ok := eng.InnerNFP(sheet, part)
	require.True(t, ok)
	assert.Equal(t, regions[0].Points, again[0].Points)
}

func TestEngineOuterNFPCacheHit(t *testing.T) {
	eng := NewEngine(NewCache(), clip.DefaultScale)
	a := squarePoly(10, 0)
	b := squarePoly(10, 1)

	first, ok := eng.OuterNFP(a, b, false)
	require.True(t, ok)
	assert.Equal(t, 1, eng.Cache().Stats())

	second, ok := eng.OuterNFP(a, b, false)
	require.True(t, ok)
	assert.Equal(t, 1, eng.Cache().Stats(), "second call must be a cache hit")

	require.Equal(t, first.Points, second.Points, "structurally equal")
	assert.NotSame(t, &first.Points[0], &second.Points[0], "deep cloned, not shared")
}

func TestEngineOuterNFPUnknownSourceNotCached(t *testing.T) {
	eng := NewEngine(NewCache(), clip.DefaultScale)
	a := squarePoly(10, -1)
	b := squarePoly(10, 1)

	_, ok := eng.OuterNFP(a, b, false)
	require.True(t, ok)
	assert.Equal(t, 0, eng.Cache().Stats())
}

func TestOrbitalOuterNFPSquares(t *testing.T) {
	a := squarePoly(20, 0)
	b := squarePoly(5, 1)

	rings := orbitalNFP(a.Points, b.Points, false, false)
	require.Len(t, rings, 1)
	require.GreaterOrEqual(t, len(rings[0]), 4)

	// the orbit must trace the outside of A at B's size: bounds of
	// the reference-vertex track
	bb := geom.RingBounds(rings[0])
	assert.InDelta(t, -5.0, bb.X, 1e-6)
	assert.InDelta(t, -5.0, bb.Y, 1e-6)
	assert.InDelta(t, 25.0, bb.W, 1e-6)
	assert.InDelta(t, 25.0, bb.H, 1e-6)

	// at every vertex B touches but does not overlap A
	for _, v := range rings[0] {
		shifted := b.Translated(v.X-b.Points[0].X, v.Y-b.Points[0].Y)
		assert.False(t, clip.Intersects(a.Points, shifted.Points, clip.DefaultScale),
			"B at orbit vertex (%v, %v) must not overlap A", v.X, v.Y)
	}
}

func TestOrbitalInnerNFPTriangle(t *testing.T) {
	tri := geom.Polygon{Points: []geom.Point{
		{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 0, Y: 40},
	}}
	b := squarePoly(5, 1)

	rings := orbitalNFP(tri.Points, b.Points, true, true)
	require.NotEmpty(t, rings)

	bb := tri.Bounds()
	for _, ring := range rings {
		require.GreaterOrEqual(t, len(ring), 3)
		for _, v := range ring {
			assert.GreaterOrEqual(t, v.X, bb.X-geom.Tol)
			assert.LessOrEqual(t, v.X, bb.X+bb.W+geom.Tol)
			assert.GreaterOrEqual(t, v.Y, bb.Y-geom.Tol)
			assert.LessOrEqual(t, v.Y, bb.Y+bb.H+geom.Tol)
		}
	}
}

func TestCalculateNFPInsideContainerWithIsland(t *testing.T) {
	// a square container with a solid island in its lower-left corner
	container := squarePoly(100, 0)
	container.Children = []geom.Polygon{{
		Source: 1,
		Points: []geom.Point{{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 30}, {X: 0, Y: 30}},
	}}
	part := squarePoly(10, 2)

	nfps := CalculateNFP(container, part, true, clip.DefaultScale)
	require.Len(t, nfps, 1)
	require.NotEmpty(t, nfps[0].Children)

	var area float64
	for _, c := range nfps[0].Children {
		area += math.Abs(geom.RingArea(c.Points))
	}
	full := 90.0 * 90.0
	assert.Less(t, area, full, "island must block part of the interior")
	assert.Greater(t, area, 0.0)

	// no valid position may put the part overlapping the island
	for _, region := range nfps[0].Children {
		for _, v := range region.Points {
			shifted := part.Translated(v.X-part.Points[0].X, v.Y-part.Points[0].Y)
			assert.False(t, clip.Intersects(container.Children[0].Points, shifted.Points, clip.DefaultScale))
		}
	}
}
