package nfp

import (
	"math"

	"github.com/piwi3910/deepnest/internal/geom"
)

// The orbital no-fit-polygon computation slides polygon B around (or
// inside) polygon A, always keeping the two in contact, and records
// the track of B's reference vertex. It handles concave rings, which
// the Minkowski path cannot, at the cost of being slower.

type orbitState struct {
	a       geom.OffsetRing
	b       geom.OffsetRing
	aMarked []bool
	bMarked []bool
}

// translation candidate derived from a touching vertex/edge pair.
// Start and end index into either ring for marking traversed edges.
type slideVector struct {
	x, y   float64
	startA int
	endA   int
	startB int
	endB   int
}

type touchingPair struct {
	kind int // 0: vertex-vertex, 1: B vertex on A edge, 2: A vertex on B edge
	a    int
	b    int
}

// orbitalNFP computes the no-fit polygon of B around A by sliding.
// With inside true, B orbits the interior of A instead and every
// disconnected interior region is returned when searchEdges is set.
func orbitalNFP(aPts, bPts []geom.Point, inside, searchEdges bool) [][]geom.Point {
	if len(aPts) < 3 || len(bPts) < 3 {
		return nil
	}

	st := &orbitState{
		a:       geom.OffsetRing{Points: aPts},
		b:       geom.OffsetRing{Points: bPts},
		aMarked: make([]bool, len(aPts)),
		bMarked: make([]bool, len(bPts)),
	}

	var start *geom.Point
	if !inside {
		// start B's topmost vertex on A's bottommost vertex: guaranteed
		// to touch without overlap
		minA, maxB := 0, 0
		for i := 1; i < len(aPts); i++ {
			if aPts[i].Y < aPts[minA].Y {
				minA = i
			}
		}
		for i := 1; i < len(bPts); i++ {
			if bPts[i].Y > bPts[maxB].Y {
				maxB = i
			}
		}
		start = &geom.Point{X: aPts[minA].X - bPts[maxB].X, Y: aPts[minA].Y - bPts[maxB].Y}
	} else {
		start = st.searchStartPoint(inside, nil)
	}

	var nfpList [][]geom.Point

	for start != nil {
		st.b.OffsetX = start.X
		st.b.OffsetY = start.Y

		var prev *slideVector
		reference := st.b.At(0)
		startX, startY := reference.X, reference.Y
		nfp := []geom.Point{reference}

		counter := 0
		limit := 10 * (len(aPts) + len(bPts))

		for counter < limit {
			touching := st.findTouching()
			vectors := st.buildVectors(touching)

			var translate *slideVector
			maxd := 0.0
			for i := range vectors {
				v := &vectors[i]
				if v.x == 0 && v.y == 0 {
					continue
				}
				// reject vectors that would retrace the previous move
				if prev != nil && v.y*prev.y+v.x*prev.x < 0 {
					vl := math.Hypot(v.x, v.y)
					pl := math.Hypot(prev.x, prev.y)
					if math.Abs((v.y/vl)*(prev.x/pl)-(v.x/vl)*(prev.y/pl)) < 1e-4 {
						continue
					}
				}
				d, ok := geom.PolygonSlideDistance(st.a, st.b, geom.Point{X: v.x, Y: v.y}, true)
				vecd2 := v.x*v.x + v.y*v.y
				if !ok || d*d > vecd2 {
					d = math.Sqrt(vecd2)
				}
				if d > maxd {
					maxd = d
					translate = v
				}
			}

			if translate == nil || geom.AlmostEqual(maxd, 0, geom.Tol) {
				// the loop did not close
				nfp = nil
				break
			}

			st.mark(translate)
			prev = translate

			// trim the translation to the slide distance
			tx, ty := translate.x, translate.y
			vlength2 := tx*tx + ty*ty
			if maxd*maxd < vlength2 && !geom.AlmostEqual(maxd*maxd, vlength2, geom.Tol) {
				scale := math.Sqrt(maxd * maxd / vlength2)
				tx *= scale
				ty *= scale
			}

			reference.X += tx
			reference.Y += ty

			if geom.AlmostEqual(reference.X, startX, geom.Tol) && geom.AlmostEqual(reference.Y, startY, geom.Tol) {
				break
			}

			// if A and B start on a touching horizontal line the end
			// point may fall on an earlier vertex instead of the start
			looped := false
			for i := 0; i < len(nfp)-1; i++ {
				if geom.AlmostEqual(reference.X, nfp[i].X, geom.Tol) && geom.AlmostEqual(reference.Y, nfp[i].Y, geom.Tol) {
					looped = true
					break
				}
			}
			if looped {
				break
			}

			nfp = append(nfp, geom.Point{X: reference.X, Y: reference.Y})
			st.b.OffsetX += tx
			st.b.OffsetY += ty
			counter++
		}

		if len(nfp) > 0 {
			nfpList = append(nfpList, nfp)
		}

		if !searchEdges {
			break
		}
		start = st.searchStartPoint(inside, nfpList)
	}

	return nfpList
}

func (st *orbitState) findTouching() []touchingPair {
	a, b := st.a, st.b
	na, nb := len(a.Points), len(b.Points)
	var touching []touchingPair
	for i := 0; i < na; i++ {
		nexti := (i + 1) % na
		for j := 0; j < nb; j++ {
			nextj := (j + 1) % nb
			bj := b.At(j)
			bnext := b.At(nextj)
			switch {
			case geom.AlmostEqual(a.Points[i].X, bj.X, geom.Tol) && geom.AlmostEqual(a.Points[i].Y, bj.Y, geom.Tol):
				touching = append(touching, touchingPair{kind: 0, a: i, b: j})
			case geom.OnSegmentExclusive(a.Points[i], a.Points[nexti], bj):
				touching = append(touching, touchingPair{kind: 1, a: nexti, b: j})
			case geom.OnSegmentExclusive(bj, bnext, a.Points[i]):
				touching = append(touching, touchingPair{kind: 2, a: i, b: nextj})
			}
		}
	}
	return touching
}

func (st *orbitState) buildVectors(touching []touchingPair) []slideVector {
	a, b := st.a, st.b
	na, nb := len(a.Points), len(b.Points)
	var vectors []slideVector

	for _, t := range touching {
		vertexA := a.Points[t.a]
		st.aMarked[t.a] = true

		prevAi := (t.a - 1 + na) % na
		nextAi := (t.a + 1) % na
		prevA := a.Points[prevAi]
		nextA := a.Points[nextAi]

		prevBi := (t.b - 1 + nb) % nb
		nextBi := (t.b + 1) % nb
		vertexB := b.Points[t.b]
		prevB := b.Points[prevBi]
		nextB := b.Points[nextBi]

		switch t.kind {
		case 0:
			vectors = append(vectors,
				slideVector{x: prevA.X - vertexA.X, y: prevA.Y - vertexA.Y, startA: t.a, endA: prevAi, startB: -1, endB: -1},
				slideVector{x: nextA.X - vertexA.X, y: nextA.Y - vertexA.Y, startA: t.a, endA: nextAi, startB: -1, endB: -1},
				// B vectors are inverted: sliding B along its own edge
				slideVector{x: vertexB.X - prevB.X, y: vertexB.Y - prevB.Y, startA: -1, endA: -1, startB: prevBi, endB: t.b},
				slideVector{x: vertexB.X - nextB.X, y: vertexB.Y - nextB.Y, startA: -1, endA: -1, startB: nextBi, endB: t.b},
			)
		case 1:
			bAbs := b.At(t.b)
			vectors = append(vectors,
				slideVector{x: vertexA.X - bAbs.X, y: vertexA.Y - bAbs.Y, startA: prevAi, endA: t.a, startB: -1, endB: -1},
				slideVector{x: prevA.X - bAbs.X, y: prevA.Y - bAbs.Y, startA: t.a, endA: prevAi, startB: -1, endB: -1},
			)
		case 2:
			bAbs := b.At(t.b)
			bPrevAbs := b.At(prevBi)
			vectors = append(vectors,
				slideVector{x: vertexA.X - bAbs.X, y: vertexA.Y - bAbs.Y, startA: -1, endA: -1, startB: prevBi, endB: t.b},
				slideVector{x: vertexA.X - bPrevAbs.X, y: vertexA.Y - bPrevAbs.Y, startA: -1, endA: -1, startB: t.b, endB: prevBi},
			)
		}
	}
	return vectors
}

func (st *orbitState) mark(v *slideVector) {
	if v.startA >= 0 {
		st.aMarked[v.startA] = true
	}
	if v.endA >= 0 {
		st.aMarked[v.endA] = true
	}
	if v.startB >= 0 {
		st.bMarked[v.startB] = true
	}
	if v.endB >= 0 {
		st.bMarked[v.endB] = true
	}
}

// searchStartPoint looks for a placement of B touching A that is not
// already covered by a previously traced NFP loop. Candidate
// placements put a vertex of B on an unmarked vertex of A, sliding
// along the following edge when the raw placement overlaps.
func (st *orbitState) searchStartPoint(inside bool, nfpList [][]geom.Point) *geom.Point {
	a, b := &st.a, &st.b
	na := len(a.Points)

	for i := 0; i < na; i++ {
		if st.aMarked[i] {
			continue
		}
		st.aMarked[i] = true
		for j := range b.Points {
			b.OffsetX = a.Points[i].X - b.Points[j].X
			b.OffsetY = a.Points[i].Y - b.Points[j].Y

			bInside, known := st.ringSide()
			if !known {
				// A and B are identical
				return nil
			}
			if bInside == inside && !ringsIntersect(*a, *b) && !inNfpList(b.OffsetX, b.OffsetY, nfpList) {
				return &geom.Point{X: b.OffsetX, Y: b.OffsetY}
			}

			// slide B along the edge out of the overlapping position
			vx := a.Points[(i+1)%na].X - a.Points[i].X
			vy := a.Points[(i+1)%na].Y - a.Points[i].Y
			d1, ok1 := geom.PolygonProjectionDistance(*a, *b, geom.Point{X: vx, Y: vy})
			d2, ok2 := geom.PolygonProjectionDistance(*b, *a, geom.Point{X: -vx, Y: -vy})

			var d float64
			ok := false
			switch {
			case ok1 && ok2:
				d = math.Min(d1, d2)
				ok = true
			case ok1:
				d, ok = d1, true
			case ok2:
				d, ok = d2, true
			}
			// only slide until no longer negative
			if !ok || geom.AlmostEqual(d, 0, geom.Tol) || d <= 0 {
				continue
			}

			vd2 := vx*vx + vy*vy
			if d*d < vd2 && !geom.AlmostEqual(d*d, vd2, geom.Tol) {
				vd := math.Sqrt(vd2)
				vx *= d / vd
				vy *= d / vd
			}
			b.OffsetX += vx
			b.OffsetY += vy

			bInside, known = st.ringSide()
			if !known {
				return nil
			}
			if bInside == inside && !ringsIntersect(*a, *b) && !inNfpList(b.OffsetX, b.OffsetY, nfpList) {
				return &geom.Point{X: b.OffsetX, Y: b.OffsetY}
			}
		}
	}
	return nil
}

// ringSide classifies B's offset position relative to A by the first
// vertex of B not on A's boundary. The second return is false when
// every vertex lies on the boundary.
func (st *orbitState) ringSide() (inside bool, known bool) {
	for k := range st.b.Points {
		c := geom.RingContains(st.a.Points, st.b.At(k), geom.Tol)
		if c != geom.OnBoundary {
			return c == geom.Inside, true
		}
	}
	return false, false
}

func inNfpList(x, y float64, nfpList [][]geom.Point) bool {
	for _, nfp := range nfpList {
		for _, p := range nfp {
			if geom.AlmostEqual(x, p.X, geom.Tol) && geom.AlmostEqual(y, p.Y, geom.Tol) {
				return true
			}
		}
	}
	return false
}

// ringsIntersect reports whether the two offset rings cross. Touching
// contacts are resolved by checking which side the neighbouring
// vertices fall on, so a shared edge or vertex does not count as an
// intersection.
func ringsIntersect(a, b geom.OffsetRing) bool {
	na, nb := len(a.Points), len(b.Points)
	for i := 0; i < na; i++ {
		a1 := a.At(i)
		a2 := a.At((i + 1) % na)
		for j := 0; j < nb; j++ {
			b1 := b.At(j)
			b2 := b.At((j + 1) % nb)

			if geom.SamePoint(a1, b1, geom.Tol) || geom.OnSegmentExclusive(a1, a2, b1) {
				if crossesAt(a, b.At((j-1+nb)%nb), b2) {
					return true
				}
				continue
			}
			if geom.OnSegmentExclusive(a1, a2, b2) {
				if crossesAt(a, b1, b.At((j+2)%nb)) {
					return true
				}
				continue
			}
			if geom.OnSegmentExclusive(b1, b2, a1) {
				if crossesAt(b, a.At((i-1+na)%na), a2) {
					return true
				}
				continue
			}
			if geom.OnSegmentExclusive(b1, b2, a2) {
				if crossesAt(b, a1, a.At((i+2)%na)) {
					return true
				}
				continue
			}
			// shared endpoints are touching contacts handled by the
			// vertex cases on neighbouring edge pairs
			if geom.SamePoint(a2, b1, geom.Tol) || geom.SamePoint(a1, b2, geom.Tol) || geom.SamePoint(a2, b2, geom.Tol) {
				continue
			}
			if _, ok := geom.SegmentIntersect(a1, a2, b1, b2, false); ok {
				return true
			}
		}
	}
	return false
}

// crossesAt reports whether the two neighbour points fall on strictly
// opposite sides of ring r, which makes a touching contact a genuine
// crossing.
func crossesAt(r geom.OffsetRing, n1, n2 geom.Point) bool {
	c1 := offsetRingContains(r, n1)
	c2 := offsetRingContains(r, n2)
	return (c1 == geom.Inside && c2 == geom.Outside) || (c1 == geom.Outside && c2 == geom.Inside)
}

func offsetRingContains(r geom.OffsetRing, p geom.Point) geom.Containment {
	return geom.RingContains(r.Points, geom.Point{X: p.X - r.OffsetX, Y: p.Y - r.OffsetY}, geom.Tol)
}
