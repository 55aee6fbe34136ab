// Package clip wraps the polygon Boolean operations the nesting
// engine needs behind a narrow interface: union, difference,
// intersection tests and Minkowski sums over integer-scaled
// coordinates. The backing implementation is the Martinez-Rueda
// clipper from polyclip-go; callers pass world coordinates and a
// scale factor, and the wrapper rounds to the integer grid on entry
// and divides back out on exit.
package clip

import (
	"math"

	polyclip "github.com/ctessum/polyclip-go"

	"github.com/piwi3910/deepnest/internal/geom"
)

// FillRule selects how self-overlapping input regions are resolved.
// The Martinez backend resolves overlapping contours as filled
// regions; the rule records caller intent for the operation.
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
)

// DefaultScale is the integer scaling factor applied to coordinates
// before clipping.
const DefaultScale = 1e7

func toScaled(paths [][]geom.Point, scale float64) polyclip.Polygon {
	poly := make(polyclip.Polygon, 0, len(paths))
	for _, path := range paths {
		c := make(polyclip.Contour, 0, len(path))
		for _, p := range path {
			c = append(c, polyclip.Point{X: math.Round(p.X * scale), Y: math.Round(p.Y * scale)})
		}
		poly = append(poly, c)
	}
	return poly
}

func fromScaled(poly polyclip.Polygon, scale float64) [][]geom.Point {
	var out [][]geom.Point
	for _, c := range poly {
		if len(c) < 3 {
			continue
		}
		path := make([]geom.Point, 0, len(c))
		for _, p := range c {
			path = append(path, geom.Point{X: p.X / scale, Y: p.Y / scale})
		}
		out = append(out, path)
	}
	return out
}

// Union returns the union of the subject and clip path sets. Either
// side may be empty.
func Union(subject, clips [][]geom.Point, scale float64, _ FillRule) [][]geom.Point {
	if scale <= 0 {
		scale = DefaultScale
	}
	switch {
	case len(subject) == 0 && len(clips) == 0:
		return nil
	case len(subject) == 0:
		return fromScaled(toScaled(clips, scale), scale)
	case len(clips) == 0:
		return fromScaled(toScaled(subject, scale), scale)
	}
	result := toScaled(subject, scale).Construct(polyclip.UNION, toScaled(clips, scale))
	return fromScaled(result, scale)
}

// Difference subtracts the clip path set from the subject path set.
func Difference(subject, clips [][]geom.Point, scale float64, _ FillRule) [][]geom.Point {
	if scale <= 0 {
		scale = DefaultScale
	}
	if len(subject) == 0 {
		return nil
	}
	if len(clips) == 0 {
		return fromScaled(toScaled(subject, scale), scale)
	}
	result := toScaled(subject, scale).Construct(polyclip.DIFFERENCE, toScaled(clips, scale))
	return fromScaled(result, scale)
}

// Intersects reports whether the two rings share interior area. The
// test runs on scaled coordinates so it matches the precision of the
// other Boolean operations.
func Intersects(a, b []geom.Point, scale float64) bool {
	if scale <= 0 {
		scale = DefaultScale
	}
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	result := toScaled([][]geom.Point{a}, scale).Construct(polyclip.INTERSECTION, toScaled([][]geom.Point{b}, scale))
	for _, c := range result {
		pts := make([]geom.Point, len(c))
		for i, p := range c {
			pts[i] = geom.Point{X: p.X, Y: p.Y}
		}
		// reject slivers below one grid cell of area
		if math.Abs(geom.RingArea(pts)) > 1 {
			return true
		}
	}
	return false
}

// MinkowskiSum computes the Minkowski sum of ring a with path b by
// unioning the quadrilaterals swept between consecutive translated
// copies of a along b. The result contours bound the swept region:
// the largest is the outer boundary, the rest are interior holes.
// Callers negate b beforehand when a Minkowski difference is wanted.
func MinkowskiSum(a, b []geom.Point, scale float64) [][]geom.Point {
	if scale <= 0 {
		scale = DefaultScale
	}
	n, m := len(a), len(b)
	if n < 3 || m < 3 {
		return nil
	}

	as := make([]polyclip.Point, n)
	for i, p := range a {
		as[i] = polyclip.Point{X: math.Round(p.X * scale), Y: math.Round(p.Y * scale)}
	}
	bs := make([]polyclip.Point, m)
	for i, p := range b {
		bs[i] = polyclip.Point{X: math.Round(p.X * scale), Y: math.Round(p.Y * scale)}
	}

	var region polyclip.Polygon
	for i := 0; i < m; i++ {
		next := (i + 1) % m
		for j := 0; j < n; j++ {
			jn := (j + 1) % n
			quad := polyclip.Contour{
				{X: as[j].X + bs[i].X, Y: as[j].Y + bs[i].Y},
				{X: as[j].X + bs[next].X, Y: as[j].Y + bs[next].Y},
				{X: as[jn].X + bs[next].X, Y: as[jn].Y + bs[next].Y},
				{X: as[jn].X + bs[i].X, Y: as[jn].Y + bs[i].Y},
			}
			area := contourArea(quad)
			if math.Abs(area) < 1 {
				continue
			}
			if area < 0 {
				reverseContour(quad)
			}
			if region == nil {
				region = polyclip.Polygon{quad}
			} else {
				region = region.Construct(polyclip.UNION, polyclip.Polygon{quad})
			}
		}
	}
	return fromScaled(region, scale)
}

func contourArea(c polyclip.Contour) float64 {
	var area float64
	j := len(c) - 1
	for i := range c {
		area += c[j].X*c[i].Y - c[i].X*c[j].Y
		j = i
	}
	return 0.5 * area
}

func reverseContour(c polyclip.Contour) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}
