// Package engine runs the nesting search: a greedy placer scores
// candidate positions from no-fit polygons, a genetic algorithm
// evolves placement order and rotations, and an evaluator with a
// worker pool precomputes NFP pairs for each individual.
package engine

import (
	"math"

	"github.com/piwi3910/deepnest/internal/clip"
	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
	"github.com/piwi3910/deepnest/internal/nfp"
)

// unplacedPenalty dominates every other fitness term so the search
// always prefers placing more parts.
const unplacedPenalty = 1e8

// clipCacheEntry carries the accumulated no-fit union for one
// (source, rotation) pair so later parts extend it instead of
// rebuilding it.
type clipCacheEntry struct {
	paths [][]geom.Point
	index int
}

// candidate is one scored position for the current part.
type candidate struct {
	x, y    float64
	score   float64
	width   float64
	merged  float64
	mergeSg []model.MergedSegment
	hull    []geom.Point
}

// PlaceParts positions part instances onto the given sheets, trying
// holes of already-placed parts first, and returns the layout with
// its fitness. Each part polygon carries the rotation chosen by the
// individual being evaluated. A nil result means nothing could be
// placed.
func PlaceParts(sheets, parts []geom.Polygon, cfg model.Config, eng *nfp.Engine, nestIndex int, progress func(float64)) *model.NestResult {
	if len(sheets) == 0 {
		return nil
	}

	// rotate every part to its chosen rotation
	rotated := make([]geom.Polygon, len(parts))
	for i, p := range parts {
		deg := p.Rotation
		p.Rotation = 0
		rotated[i] = p.Rotated(deg)
	}

	total := len(rotated)
	remaining := rotated

	var allPlacements []model.SheetPlacement
	var fitness float64
	var totalSheetArea float64
	var totalMerged float64
	partsInHoles := 0
	placedCount := 0

	// the best-candidate metrics persist across sheets; see the fitness
	// accumulation below
	var minWidth, minArea float64
	minSet := false

	sheetQueue := sheets
	for len(remaining) > 0 && len(sheetQueue) > 0 {
		sheet := sheetQueue[0]
		sheetQueue = sheetQueue[1:]

		sheetArea := math.Abs(sheet.Area())
		totalSheetArea += sheetArea
		// opening a sheet costs its full area, steering toward fewer sheets
		fitness += sheetArea

		ordered := priorityOrder(remaining, sheet)

		var placed []geom.Polygon
		var placements []model.Placement
		clipCache := make(map[nfpUnionKey]clipCacheEntry)
		var unplaced []geom.Polygon

		for _, part := range ordered {
			p := part

			// try the holes of parts already on this sheet first
			if ok, pl := tryHoles(placed, placements, p, cfg, eng); ok {
				placed = append(placed, pl.poly)
				placements = append(placements, pl.placement)
				partsInHoles++
				placedCount++
				emit(progress, placedCount, total)
				continue
			}

			innerRegions, ok := eng.InnerNFP(sheet, p)
			step := 360.0 / float64(cfg.Rotations)
			for tries := 0; !ok && tries+1 < cfg.Rotations; tries++ {
				p = p.Rotated(step)
				innerRegions, ok = eng.InnerNFP(sheet, p)
			}
			if !ok {
				unplaced = append(unplaced, p)
				continue
			}

			var best *candidate
			if len(placed) == 0 {
				best = firstPosition(innerRegions, p, cfg)
			} else {
				best = bestPosition(innerRegions, placed, placements, p, cfg, eng, clipCache)
			}
			if best == nil {
				unplaced = append(unplaced, p)
				continue
			}

			placements = append(placements, model.Placement{
				ID:             p.ID,
				Source:         p.Source,
				X:              best.x,
				Y:              best.y,
				Rotation:       p.Rotation,
				Filename:       p.Filename,
				MergedLength:   best.merged,
				MergedSegments: best.mergeSg,
				Hull:           best.hull,
			})
			placed = append(placed, p)
			minWidth = best.width
			minArea = best.score
			minSet = true
			totalMerged += best.merged
			placedCount++
			emit(progress, placedCount, total)
		}

		if minSet {
			fitness += minWidth/sheetArea + minArea
		}

		allPlacements = append(allPlacements, model.SheetPlacement{
			SheetSource: sheet.Source,
			SheetID:     sheet.ID,
			Placements:  placements,
		})
		remaining = unplaced
	}

	// unplaced parts dominate the fitness so the search favors layouts
	// that place everything
	for _, p := range remaining {
		if totalSheetArea > 0 {
			fitness += unplacedPenalty * math.Abs(p.Area()) / totalSheetArea
		} else {
			fitness += unplacedPenalty
		}
	}
	if partsInHoles > 0 {
		fitness -= cfg.HoleBonus * float64(partsInHoles) * fitness
	}

	if placedCount == 0 && total > 0 {
		return nil
	}
	return &model.NestResult{
		Placements:   allPlacements,
		Fitness:      fitness,
		Area:         totalSheetArea,
		MergedLength: totalMerged,
		PartsInHoles: partsInHoles,
		Index:        nestIndex,
	}
}

func emit(progress func(float64), placed, total int) {
	if progress != nil && total > 0 {
		progress(0.5 + 0.5*float64(placed)/float64(total))
	}
}

type nfpUnionKey struct {
	source   int
	rotation int
}

// priorityOrder splits parts into three buckets, preserving relative
// order: parts larger than half the sheet in either direction, parts
// with holes, then everything else.
func priorityOrder(parts []geom.Polygon, sheet geom.Polygon) []geom.Polygon {
	sb := sheet.Bounds()
	var big, holed, rest []geom.Polygon
	for _, p := range parts {
		bb := p.Bounds()
		switch {
		case bb.W > 0.5*sb.W || bb.H > 0.5*sb.H:
			big = append(big, p)
		case len(p.Children) > 0:
			holed = append(holed, p)
		default:
			rest = append(rest, p)
		}
	}
	out := make([]geom.Polygon, 0, len(parts))
	out = append(out, big...)
	out = append(out, holed...)
	out = append(out, rest...)
	return out
}

// firstPosition places the first part of a sheet at the inner-NFP
// vertex minimizing x, then y, and scores it so the fitness terms are
// defined for single-part sheets.
func firstPosition(regions []geom.Polygon, p geom.Polygon, cfg model.Config) *candidate {
	var best *candidate
	for _, region := range regions {
		for _, v := range region.Points {
			x := v.X - p.Points[0].X
			y := v.Y - p.Points[0].Y
			if best == nil || x < best.x || (geom.AlmostEqual(x, best.x, geom.Tol) && y < best.y) {
				best = &candidate{x: x, y: y}
			}
		}
	}
	if best == nil {
		return nil
	}
	shifted := p.Translated(best.x, best.y)
	score, width, hull := scorePosition(nil, shifted, cfg)
	best.score = score
	best.width = width
	best.hull = hull
	return best
}

// bestPosition builds the blocked region from the no-fit union of the
// placed parts, subtracts it from the sheet's inner NFP, and scores
// every vertex of the remainder.
func bestPosition(regions []geom.Polygon, placed []geom.Polygon, placements []model.Placement, p geom.Polygon, cfg model.Config, eng *nfp.Engine, clipCache map[nfpUnionKey]clipCacheEntry) *candidate {
	key := nfpUnionKey{source: p.Source, rotation: int(math.Mod(p.Rotation, 360))}
	entry := clipCache[key]

	blocked := entry.paths
	for j := entry.index; j < len(placed); j++ {
		outer, ok := eng.OuterNFP(placed[j], p, false)
		if !ok {
			continue
		}
		paths := translatedNfpPaths(outer, placements[j].X, placements[j].Y)
		blocked = clip.Union(blocked, paths, cfg.ClipperScale, clip.NonZero)
	}
	clipCache[key] = clipCacheEntry{paths: blocked, index: len(placed)}

	subject := make([][]geom.Point, 0, len(regions))
	for _, r := range regions {
		subject = append(subject, r.Points)
	}
	free := clip.Difference(subject, blocked, cfg.ClipperScale, clip.EvenOdd)
	if len(free) == 0 {
		return nil
	}

	shiftedPlaced := make([]geom.Polygon, len(placed))
	for i, q := range placed {
		shiftedPlaced[i] = q.Translated(placements[i].X, placements[i].Y)
	}

	var best *candidate
	for _, region := range free {
		for _, v := range region {
			x := v.X - p.Points[0].X
			y := v.Y - p.Points[0].Y
			shifted := p.Translated(x, y)

			if overlapsAny(shifted, shiftedPlaced, cfg) {
				continue
			}

			score, width, hull := scorePosition(shiftedPlaced, shifted, cfg)
			cand := candidate{x: x, y: y, score: score, width: width, hull: hull}

			if cfg.MergeLines {
				minLength := 0.5 * cfg.Scale
				merge := mergedLength(shiftedPlaced, shifted, minLength, 0.1*cfg.CurveTolerance)
				cand.score -= merge.total * cfg.TimeRatio
				cand.merged = merge.total
				cand.mergeSg = merge.segments
			}

			if betterCandidate(&cand, best, cfg) {
				c := cand
				best = &c
			}
		}
	}
	return best
}

// betterCandidate orders candidates by score; ties prefer the
// narrower combined layout under gravity scoring, then lower x, then
// lower y.
func betterCandidate(cand, best *candidate, cfg model.Config) bool {
	if best == nil {
		return true
	}
	if !geom.AlmostEqual(cand.score, best.score, geom.Tol) {
		return cand.score < best.score
	}
	if cfg.PlacementType == model.PlacementGravity && !geom.AlmostEqual(cand.width, best.width, geom.Tol) {
		return cand.width < best.width
	}
	if !geom.AlmostEqual(cand.x, best.x, geom.Tol) {
		return cand.x < best.x
	}
	return cand.y < best.y
}

// overlapsAny screens a shifted part against every placed part.
// Overlap inside a hole of a placed part is permitted; those
// positions surface through the no-fit union's interior islands.
func overlapsAny(shifted geom.Polygon, shiftedPlaced []geom.Polygon, cfg model.Config) bool {
	sb := shifted.Bounds()
	for _, q := range shiftedPlaced {
		if !clip.Intersects(shifted.Points, q.Points, cfg.ClipperScale) {
			continue
		}
		inHole := false
		for _, hole := range q.Children {
			hb := geom.RingBounds(hole.Points)
			if sb.X >= hb.X && sb.Y >= hb.Y && sb.X+sb.W <= hb.X+hb.W && sb.Y+sb.H <= hb.Y+hb.H {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// scorePosition computes the area score of the layout with the
// shifted part added, per the configured placement strategy. It
// returns the score, the combined bounding width, and the convex
// hull when hull scoring is active.
func scorePosition(shiftedPlaced []geom.Polygon, shifted geom.Polygon, cfg model.Config) (float64, float64, []geom.Point) {
	var allPoints []geom.Point
	for _, q := range shiftedPlaced {
		allPoints = append(allPoints, q.Points...)
	}
	allPoints = append(allPoints, shifted.Points...)

	switch cfg.PlacementType {
	case model.PlacementConvexHull:
		hull := geom.ConvexHull(allPoints)
		return math.Abs(geom.RingArea(hull)), geom.RingBounds(allPoints).W, hull
	case model.PlacementBox:
		bb := geom.RingBounds(allPoints)
		return bb.W * bb.H, bb.W, nil
	default: // gravity
		bb := geom.RingBounds(allPoints)
		return bb.W*5 + bb.H, bb.W, nil
	}
}

// translatedNfpPaths flattens an NFP and its children (interior hole
// placements) into translated clip paths.
func translatedNfpPaths(n geom.Polygon, dx, dy float64) [][]geom.Point {
	paths := make([][]geom.Point, 0, 1+len(n.Children))
	paths = append(paths, translateRing(n.Points, dx, dy))
	for _, c := range n.Children {
		paths = append(paths, translateRing(c.Points, dx, dy))
	}
	return paths
}

func translateRing(ring []geom.Point, dx, dy float64) []geom.Point {
	out := make([]geom.Point, len(ring))
	for i, pt := range ring {
		out[i] = geom.Point{X: pt.X + dx, Y: pt.Y + dy, Exact: pt.Exact}
	}
	return out
}
