// Package nfp computes and caches no-fit polygons: the locus of
// placements of a polygon B (tracked by its first vertex) such that B
// does not overlap a polygon A. Convex and concave hole-free pairs go
// through the Minkowski construction; containers, containers with
// islands, and interior placements go through the exact orbital
// routine.
package nfp

import (
	"github.com/piwi3910/deepnest/internal/clip"
	"github.com/piwi3910/deepnest/internal/geom"
)

// Engine computes NFPs against a shared cache. OuterNFP and InnerNFP
// insert what they compute on a miss, so their callers (the evaluator
// and the placer) both write to the cache.
type Engine struct {
	cache *Cache
	scale float64
}

// NewEngine returns an engine clipping at the given integer scale.
func NewEngine(cache *Cache, scale float64) *Engine {
	if scale <= 0 {
		scale = clip.DefaultScale
	}
	return &Engine{cache: cache, scale: scale}
}

// Cache exposes the engine's backing cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Scale returns the clipping scale the engine operates at.
func (e *Engine) Scale() float64 { return e.scale }

// MinkowskiNFP computes the outer no-fit polygon of the pair by
// summing A with the point-negated B and selecting the component with
// the largest negative (clockwise) area, translated so vertices are
// positions of B's first vertex. It ignores children on either
// polygon; ok is false when the sum produced no boundary component.
func MinkowskiNFP(a, b geom.Polygon, scale float64) (geom.Polygon, bool) {
	negB := make([]geom.Point, len(b.Points))
	for i, p := range b.Points {
		negB[i] = geom.Point{X: -p.X, Y: -p.Y}
	}
	components := clip.MinkowskiSum(a.Points, negB, scale)
	if len(components) == 0 {
		return geom.Polygon{}, false
	}

	// the clipper does not guarantee winding, so orient components
	// first: boundary components clockwise (negative area), enclosed
	// holes counterclockwise. Holes then can never win the signed
	// selection below.
	areas := make([]float64, len(components))
	for i, c := range components {
		hole := false
		for j, other := range components {
			if j != i && geom.RingContains(other, c[0], geom.Tol) == geom.Inside {
				hole = true
				break
			}
		}
		area := geom.RingArea(c)
		if hole == (area < 0) {
			reversePoints(c)
			area = -area
		}
		areas[i] = area
	}

	// largest negative (clockwise) area; ties keep the earlier component
	best := -1
	for i, area := range areas {
		if area < 0 && (best < 0 || area < areas[best]) {
			best = i
		}
	}
	if best < 0 {
		return geom.Polygon{}, false
	}

	ring := make([]geom.Point, len(components[best]))
	for i, p := range components[best] {
		ring[i] = geom.Point{X: p.X + b.Points[0].X, Y: p.Y + b.Points[0].Y}
	}
	return geom.Polygon{Points: ring}, true
}

func reversePoints(pts []geom.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// CalculateNFP is the exact routine used when A is a container
// (inside true) or carries children. The result list holds one
// polygon for the outer case; for the inside case a single polygon
// whose Children are the valid interior regions.
func CalculateNFP(a, b geom.Polygon, inside bool, scale float64) []geom.Polygon {
	if !inside {
		rings := orbitalNFP(a.Points, b.Points, false, false)
		if len(rings) == 0 || len(rings[0]) < 3 {
			return nil
		}
		return []geom.Polygon{{Points: rings[0]}}
	}

	interior := interiorRings(a.Points, b.Points)
	if len(interior) == 0 {
		return nil
	}

	if len(a.Children) > 0 {
		// children of a container are solid from B's point of view
		var blocked [][]geom.Point
		for _, child := range a.Children {
			region, ok := obstructionRegion(child, b, scale)
			if ok {
				blocked = append(blocked, region)
			}
		}
		if len(blocked) > 0 {
			interior = clip.Difference(interior, blocked, scale, clip.NonZero)
			if len(interior) == 0 {
				return nil
			}
		}
	}

	result := geom.Polygon{Points: append([]geom.Point(nil), a.Points...)}
	for _, ring := range interior {
		if len(ring) >= 3 {
			result.Children = append(result.Children, geom.Polygon{Points: ring})
		}
	}
	if len(result.Children) == 0 {
		return nil
	}
	return []geom.Polygon{result}
}

// interiorRings returns the placements of B's first vertex that keep
// B inside the ring a. Rectangular containers use the analytic form.
func interiorRings(a, b []geom.Point) [][]geom.Point {
	container := geom.Polygon{Points: a}
	if container.IsRectangle(geom.RectangleTol) {
		ring, ok := rectangleInnerNFP(a, b)
		if !ok {
			return nil
		}
		return [][]geom.Point{ring}
	}
	// B keeps its own vertex order: NFP positions track its first vertex
	return orbitalNFP(ccw(a), b, true, true)
}

// ccw returns the ring in counterclockwise order, which the orbital
// routine's outward-normal tests rely on. Hole rings arrive clockwise.
func ccw(ring []geom.Point) []geom.Point {
	if geom.RingArea(ring) >= 0 {
		return ring
	}
	out := make([]geom.Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}

// rectangleInnerNFP is the analytic inner NFP for an axis-aligned
// rectangular container. ok is false when B cannot fit.
func rectangleInnerNFP(a, b []geom.Point) ([]geom.Point, bool) {
	ab := geom.RingBounds(a)
	bb := geom.RingBounds(b)
	if bb.W > ab.W+geom.Tol || bb.H > ab.H+geom.Tol {
		return nil, false
	}
	x0 := ab.X - bb.X + b[0].X
	y0 := ab.Y - bb.Y + b[0].Y
	x1 := ab.X + ab.W - (bb.X + bb.W) + b[0].X
	y1 := ab.Y + ab.H - (bb.Y + bb.H) + b[0].Y
	return []geom.Point{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	}, true
}

// obstructionRegion returns the filled region of positions where B
// would overlap the solid polygon c.
func obstructionRegion(c geom.Polygon, b geom.Polygon, scale float64) ([]geom.Point, bool) {
	nfp, ok := MinkowskiNFP(c, b, scale)
	if !ok {
		return nil, false
	}
	// positions are tracked by B's first vertex; the region is already
	// in the shared coordinate frame
	return nfp.Points, true
}

// OuterNFP returns the no-fit polygon of the pair, from cache when
// available. With inside true, or when A carries children, the exact
// routine runs; otherwise the Minkowski construction is used. Results
// with known sources are inserted into the cache; reads and writes
// both deep-clone.
func (e *Engine) OuterNFP(a, b geom.Polygon, inside bool) (geom.Polygon, bool) {
	key := KeyFor(a, b)
	cacheable := a.Source >= 0 && b.Source >= 0
	if cacheable {
		if hit, ok := e.cache.Find(key, inside); ok && len(hit) > 0 {
			return hit[0], true
		}
	}

	var result geom.Polygon
	if inside || len(a.Children) > 0 {
		nfps := CalculateNFP(a, b, inside, e.scale)
		if len(nfps) == 0 {
			return geom.Polygon{}, false
		}
		result = nfps[0]
	} else {
		var ok bool
		result, ok = MinkowskiNFP(a, b, e.scale)
		if !ok {
			return geom.Polygon{}, false
		}
	}

	// surface per-hole interior placements on the outer NFP so the
	// placer can offer hole positions for this pair
	if !inside && len(a.Children) > 0 {
		for _, child := range a.Children {
			cb := geom.RingBounds(child.Points)
			bb := b.Bounds()
			if bb.W > cb.W || bb.H > cb.H {
				continue
			}
			if holes, ok := e.InnerNFP(child, b); ok {
				result.Children = append(result.Children, holes...)
			}
		}
	}

	if cacheable && len(result.Points) > 0 {
		e.cache.Insert(key, inside, []geom.Polygon{result})
	}
	return result, len(result.Points) > 0
}

// InnerNFP returns the placements of B inside container A, split into
// one polygon per connected region. Children of A (holes of a sheet,
// islands of a hole) are avoided. ok is false when B does not fit
// anywhere.
func (e *Engine) InnerNFP(a, b geom.Polygon) ([]geom.Polygon, bool) {
	key := Key{ASource: a.Source, BSource: b.Source, ARotation: 0, BRotation: int(b.Rotation)}
	cacheable := a.Source >= 0 && b.Source >= 0
	if cacheable {
		if hit, ok := e.cache.Find(key, true); ok {
			return hit, len(hit) > 0
		}
	}

	nfps := CalculateNFP(a, b, true, e.scale)
	if len(nfps) == 0 || len(nfps[0].Children) == 0 {
		return nil, false
	}

	var result []geom.Polygon
	for _, c := range nfps[0].Children {
		// exact fits degenerate to zero-area regions and are still valid
		if len(c.Points) >= 3 {
			result = append(result, geom.Polygon{Points: c.Points})
		}
	}
	if len(result) == 0 {
		return nil, false
	}
	if cacheable {
		e.cache.Insert(key, true, result)
	}
	return result, true
}
