package engine

import (
	"math"

	"github.com/piwi3910/deepnest/internal/clip"
	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
	"github.com/piwi3910/deepnest/internal/nfp"
)

// holeMargin keeps the first part in a hole away from the hole's
// top-left corner.
const holeMargin = 1.0

type holePlacement struct {
	poly      geom.Polygon
	placement model.Placement
}

// tryHoles attempts to place p inside a hole of any already-placed
// part, preferring earlier placements.
func tryHoles(placed []geom.Polygon, placements []model.Placement, p geom.Polygon, cfg model.Config, eng *nfp.Engine) (bool, holePlacement) {
	for qi, q := range placed {
		if len(q.Children) == 0 {
			continue
		}
		qPlacement := placements[qi]

		// parts already committed into q's holes
		var holedParts []geom.Polygon
		var holedPlacements []model.Placement
		for pi, pl := range placements {
			if pl.InHole && pl.HoleParent == q.ID {
				holedParts = append(holedParts, placed[pi])
				holedPlacements = append(holedPlacements, pl)
			}
		}

		for _, hole := range q.Children {
			fits, x, y, fitted := placeInHole(hole, holedParts, holedPlacements, qPlacement, p, cfg, eng)
			if !fits {
				continue
			}
			return true, holePlacement{
				poly: fitted,
				placement: model.Placement{
					ID:         fitted.ID,
					Source:     fitted.Source,
					X:          x,
					Y:          y,
					Rotation:   fitted.Rotation,
					Filename:   fitted.Filename,
					InHole:     true,
					HoleParent: q.ID,
				},
			}
		}
	}
	return false, holePlacement{}
}

// placeInHole tries every discrete rotation of p inside the given
// hole. The hole ring is in the parent's rotated frame; qPlacement
// translates it to sheet coordinates. On success the returned polygon
// is p at the fitted rotation.
func placeInHole(hole geom.Polygon, holedParts []geom.Polygon, holedPlacements []model.Placement, qPlacement model.Placement, p geom.Polygon, cfg model.Config, eng *nfp.Engine) (bool, float64, float64, geom.Polygon) {
	holeBounds := geom.RingBounds(hole.Points)
	step := 360.0 / float64(cfg.Rotations)

	// early reject: no rotation of p's bounding box fits the hole
	fitsAny := false
	for k := 0; k < cfg.Rotations; k++ {
		bb := p.Rotated(float64(k) * step).Bounds()
		if bb.W <= holeBounds.W && bb.H <= holeBounds.H {
			fitsAny = true
			break
		}
	}
	if !fitsAny {
		return false, 0, 0, geom.Polygon{}
	}

	holeAbs := hole.Translated(qPlacement.X, qPlacement.Y)
	holeAbsBounds := geom.RingBounds(holeAbs.Points)

	for k := 0; k < cfg.Rotations; k++ {
		rp := p.Rotated(float64(k) * step)
		bb := rp.Bounds()
		if bb.W > holeBounds.W || bb.H > holeBounds.H {
			continue
		}

		if len(holedParts) == 0 {
			// top-left corner of the hole with a small margin
			x := holeAbsBounds.X + holeMargin - bb.X
			y := holeAbsBounds.Y + holeMargin - bb.Y
			if insideRing(rp.Translated(x, y), holeAbs) {
				return true, x, y, rp
			}
			continue
		}

		// block out positions overlapping the parts already in the hole
		var blocked [][]geom.Point
		for hi, hp := range holedParts {
			outer, ok := eng.OuterNFP(hp, rp, false)
			if !ok {
				continue
			}
			blocked = append(blocked, translatedNfpPaths(outer, holedPlacements[hi].X, holedPlacements[hi].Y)...)
		}
		free := clip.Difference([][]geom.Point{holeAbs.Points}, blocked, cfg.ClipperScale, clip.NonZero)

		found := false
		var bestX, bestY, bestScore float64
		for _, region := range free {
			for _, v := range region {
				x := v.X - rp.Points[0].X
				y := v.Y - rp.Points[0].Y
				shifted := rp.Translated(x, y)
				if !insideRing(shifted, holeAbs) {
					continue
				}
				sb := shifted.Bounds()
				score := sb.X + sb.Y
				if !found || score < bestScore {
					found = true
					bestX, bestY, bestScore = x, y, score
				}
			}
		}
		if found {
			return true, bestX, bestY, rp
		}
	}
	return false, 0, 0, geom.Polygon{}
}

// insideRing reports whether every vertex of p lies inside or on the
// hole ring.
func insideRing(p geom.Polygon, hole geom.Polygon) bool {
	for _, v := range p.Points {
		if geom.RingContains(hole.Points, v, geom.Tol) == geom.Outside {
			return false
		}
	}
	return true
}

// mergeResult accumulates shared cut-line length and the world-space
// segments for export.
type mergeResult struct {
	total    float64
	segments []model.MergedSegment
}

// mergedLength walks every edge of the candidate part against every
// edge of the placed parts (holes included) and accumulates collinear
// overlap between exact edges. Edges shorter than minLength are
// skipped; an overlap is kept when its squared length exceeds the
// lower end of the placed edge's span along the candidate edge (the
// inner min2), not minLength squared.
func mergedLength(placedParts []geom.Polygon, p geom.Polygon, minLength, tolerance float64) mergeResult {
	min2 := minLength * minLength
	if tolerance <= 0 {
		tolerance = geom.Tol
	}
	var result mergeResult

	var rings [][]geom.Point
	for _, q := range placedParts {
		collectRings(q, &rings)
	}

	pn := len(p.Points)
	for i := 0; i < pn; i++ {
		a1 := p.Points[i]
		a2 := p.Points[(i+1)%pn]
		if !a1.Exact || !a2.Exact {
			continue
		}
		ax2 := (a2.X - a1.X) * (a2.X - a1.X)
		ay2 := (a2.Y - a1.Y) * (a2.Y - a1.Y)
		if ax2+ay2 < min2 {
			continue
		}

		angle := math.Atan2(a2.Y-a1.Y, a2.X-a1.X)
		c := math.Cos(-angle)
		s := math.Sin(-angle)
		rotA2x := (a2.X-a1.X)*c - (a2.Y-a1.Y)*s

		for _, ring := range rings {
			bn := len(ring)
			if bn < 2 {
				continue
			}
			for k := 0; k < bn; k++ {
				b1 := ring[k]
				b2 := ring[(k+1)%bn]
				if !b1.Exact || !b2.Exact {
					continue
				}
				bx2 := (b2.X - b1.X) * (b2.X - b1.X)
				by2 := (b2.Y - b1.Y) * (b2.Y - b1.Y)
				if bx2+by2 < min2 {
					continue
				}

				// rotate B's edge into A's frame, anchored at a1
				relB1x := b1.X - a1.X
				relB1y := b1.Y - a1.Y
				relB2x := b2.X - a1.X
				relB2y := b2.Y - a1.Y
				rotB1x := relB1x*c - relB1y*s
				rotB1y := relB1x*s + relB1y*c
				rotB2x := relB2x*c - relB2y*s
				rotB2y := relB2x*s + relB2y*c

				if !geom.AlmostEqual(rotB1y, 0, tolerance) || !geom.AlmostEqual(rotB2y, 0, tolerance) {
					continue
				}

				min1 := math.Min(0, rotA2x)
				max1 := math.Max(0, rotA2x)
				min2 := math.Min(rotB1x, rotB2x)
				max2 := math.Max(rotB1x, rotB2x)
				if min2 >= max1 || max2 <= min1 {
					continue
				}

				var length, relC1x, relC2x float64
				switch {
				case geom.AlmostEqual(min1, min2, geom.Tol) && geom.AlmostEqual(max1, max2, geom.Tol):
					// edges coincide
					length = max1 - min1
					relC1x, relC2x = min1, max1
				case min1 > min2 && max1 < max2:
					// A inside B
					length = max1 - min1
					relC1x, relC2x = min1, max1
				case min2 > min1 && max2 < max1:
					// B inside A
					length = max2 - min2
					relC1x, relC2x = min2, max2
				default:
					length = math.Max(0, math.Min(max1, max2)-math.Max(min1, min2))
					relC1x = math.Max(min1, min2)
					relC2x = math.Min(max1, max2)
				}

				if length*length > min2 {
					result.total += length
					ca := math.Cos(angle)
					sa := math.Sin(angle)
					result.segments = append(result.segments, model.MergedSegment{
						Start: geom.Point{X: a1.X + relC1x*ca, Y: a1.Y + relC1x*sa},
						End:   geom.Point{X: a1.X + relC2x*ca, Y: a1.Y + relC2x*sa},
					})
				}
			}
		}
	}
	return result
}

// collectRings flattens a polygon and its children into bare rings.
func collectRings(p geom.Polygon, out *[][]geom.Point) {
	*out = append(*out, p.Points)
	for _, c := range p.Children {
		collectRings(c, out)
	}
}
