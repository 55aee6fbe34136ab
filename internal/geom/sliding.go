package geom

import "math"

// OffsetRing pairs a ring with a translation that is applied lazily.
// The orbital no-fit-polygon computation slides one ring around
// another by adjusting the offset rather than rewriting vertices.
type OffsetRing struct {
	Points  []Point
	OffsetX float64
	OffsetY float64
}

func (r OffsetRing) At(i int) Point {
	return Point{X: r.Points[i].X + r.OffsetX, Y: r.Points[i].Y + r.OffsetY}
}

// NormalizeVector scales v to unit length. Zero vectors are returned
// unchanged.
func NormalizeVector(v Point) Point {
	d2 := v.X*v.X + v.Y*v.Y
	if AlmostEqual(d2, 1, Tol) || d2 == 0 {
		return v
	}
	d := math.Sqrt(d2)
	return Point{X: v.X / d, Y: v.Y / d}
}

// OnSegmentExclusive reports whether p lies strictly between A and B
// on the segment AB, endpoints excluded.
func OnSegmentExclusive(a, b, p Point) bool {
	// vertical line
	if AlmostEqual(a.X, b.X, Tol) && AlmostEqual(p.X, a.X, Tol) {
		return !AlmostEqual(p.Y, b.Y, Tol) && !AlmostEqual(p.Y, a.Y, Tol) &&
			p.Y < math.Max(a.Y, b.Y) && p.Y > math.Min(a.Y, b.Y)
	}
	// horizontal line
	if AlmostEqual(a.Y, b.Y, Tol) && AlmostEqual(p.Y, a.Y, Tol) {
		return !AlmostEqual(p.X, b.X, Tol) && !AlmostEqual(p.X, a.X, Tol) &&
			p.X < math.Max(a.X, b.X) && p.X > math.Min(a.X, b.X)
	}
	// range check
	if (p.X < a.X && p.X < b.X) || (p.X > a.X && p.X > b.X) ||
		(p.Y < a.Y && p.Y < b.Y) || (p.Y > a.Y && p.Y > b.Y) {
		return false
	}
	// exclude endpoints
	if SamePoint(p, a, Tol) || SamePoint(p, b, Tol) {
		return false
	}
	cross := (p.Y-a.Y)*(b.X-a.X) - (p.X-a.X)*(b.Y-a.Y)
	if math.Abs(cross) > Tol {
		return false
	}
	dot := (p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)
	if dot < 0 || AlmostEqual(dot, 0, Tol) {
		return false
	}
	len2 := (b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y)
	if dot > len2 || AlmostEqual(dot, len2, Tol) {
		return false
	}
	return true
}

// PointDistance returns the distance from p to the segment s1-s2
// measured along the given normal direction. With infinite false the
// projection must fall within the segment's extent; a false return
// means the point does not project onto the segment.
func PointDistance(p, s1, s2, normal Point, infinite bool) (float64, bool) {
	normal = NormalizeVector(normal)
	dir := Point{X: normal.Y, Y: -normal.X}

	pdot := p.X*dir.X + p.Y*dir.Y
	s1dot := s1.X*dir.X + s1.Y*dir.Y
	s2dot := s2.X*dir.X + s2.Y*dir.Y

	pdotnorm := p.X*normal.X + p.Y*normal.Y
	s1dotnorm := s1.X*normal.X + s1.Y*normal.Y
	s2dotnorm := s2.X*normal.X + s2.Y*normal.Y

	if !infinite {
		if ((pdot < s1dot || AlmostEqual(pdot, s1dot, Tol)) && (pdot < s2dot || AlmostEqual(pdot, s2dot, Tol))) ||
			((pdot > s1dot || AlmostEqual(pdot, s1dot, Tol)) && (pdot > s2dot || AlmostEqual(pdot, s2dot, Tol))) {
			// point doesn't collide with segment, or lies directly on the vertex
			return 0, false
		}
		if AlmostEqual(pdot, s1dot, Tol) && AlmostEqual(pdot, s2dot, Tol) {
			if pdotnorm > s1dotnorm && pdotnorm > s2dotnorm {
				return math.Min(pdotnorm-s1dotnorm, pdotnorm-s2dotnorm), true
			}
			if pdotnorm < s1dotnorm && pdotnorm < s2dotnorm {
				return -math.Min(s1dotnorm-pdotnorm, s2dotnorm-pdotnorm), true
			}
		}
	}
	return -(pdotnorm - s1dotnorm + (s1dotnorm-s2dotnorm)*(s1dot-pdot)/(s1dot-s2dot)), true
}

// SegmentDistance returns how far segment AB can travel along
// direction before colliding with segment EF. A false return means the
// segments cannot collide along that direction.
func SegmentDistance(a, b, e, f, direction Point) (float64, bool) {
	normal := Point{X: direction.Y, Y: -direction.X}
	reverse := Point{X: -direction.X, Y: -direction.Y}

	dotA := a.X*normal.X + a.Y*normal.Y
	dotB := b.X*normal.X + b.Y*normal.Y
	dotE := e.X*normal.X + e.Y*normal.Y
	dotF := f.X*normal.X + f.Y*normal.Y

	crossA := a.X*direction.X + a.Y*direction.Y
	crossB := b.X*direction.X + b.Y*direction.Y
	crossE := e.X*direction.X + e.Y*direction.Y
	crossF := f.X*direction.X + f.Y*direction.Y

	abMin := math.Min(dotA, dotB)
	abMax := math.Max(dotA, dotB)
	efMin := math.Min(dotE, dotF)
	efMax := math.Max(dotE, dotF)

	// segments that will merely touch at one point
	if AlmostEqual(abMax, efMin, Tol) || AlmostEqual(abMin, efMax, Tol) {
		return 0, false
	}
	// segments miss each other completely
	if abMax < efMin || abMin > efMax {
		return 0, false
	}

	var overlap float64
	if (abMax > efMax && abMin < efMin) || (efMax > abMax && efMin < abMin) {
		overlap = 1
	} else {
		minMax := math.Min(abMax, efMax)
		maxMin := math.Max(abMin, efMin)
		maxMax := math.Max(abMax, efMax)
		minMin := math.Min(abMin, efMin)
		overlap = (minMax - maxMin) / (maxMax - minMin)
	}

	crossABE := (e.Y-a.Y)*(b.X-a.X) - (e.X-a.X)*(b.Y-a.Y)
	crossABF := (f.Y-a.Y)*(b.X-a.X) - (f.X-a.X)*(b.Y-a.Y)

	// collinear lines
	if AlmostEqual(crossABE, 0, Tol) && AlmostEqual(crossABF, 0, Tol) {
		abNorm := NormalizeVector(Point{X: b.Y - a.Y, Y: a.X - b.X})
		efNorm := NormalizeVector(Point{X: f.Y - e.Y, Y: e.X - f.X})
		// segment normals must point in opposite directions
		if math.Abs(abNorm.Y*efNorm.X-abNorm.X*efNorm.Y) < Tol && abNorm.Y*efNorm.Y+abNorm.X*efNorm.X < 0 {
			// travel into the facing edge is blocked immediately
			normdot := abNorm.Y*direction.Y + abNorm.X*direction.X
			// the segments merely slide along each other
			if AlmostEqual(normdot, 0, Tol) {
				return 0, false
			}
			if normdot > 0 {
				return 0, true
			}
		}
		return 0, false
	}

	var distances []float64

	// coincident points: travel of the moving vertex to the
	// stationary one along direction
	switch {
	case AlmostEqual(dotA, dotE, Tol):
		distances = append(distances, crossE-crossA)
	case AlmostEqual(dotA, dotF, Tol):
		distances = append(distances, crossF-crossA)
	case dotA > efMin && dotA < efMax:
		if d, ok := PointDistance(a, e, f, direction, false); ok {
			if AlmostEqual(d, 0, Tol) {
				// A touches EF but AB may be moving away from it
				if dB, okB := PointDistance(b, e, f, direction, true); !okB || dB < 0 || AlmostEqual(dB*overlap, 0, Tol) {
					break
				}
			}
			distances = append(distances, d)
		}
	}

	switch {
	case AlmostEqual(dotB, dotE, Tol):
		distances = append(distances, crossE-crossB)
	case AlmostEqual(dotB, dotF, Tol):
		distances = append(distances, crossF-crossB)
	case dotB > efMin && dotB < efMax:
		if d, ok := PointDistance(b, e, f, direction, false); ok {
			if AlmostEqual(d, 0, Tol) {
				if dA, okA := PointDistance(a, e, f, direction, true); !okA || dA < 0 || AlmostEqual(dA*overlap, 0, Tol) {
					break
				}
			}
			distances = append(distances, d)
		}
	}

	// stationary vertices hitting the moving segment: the segment
	// travels along direction, so the relative motion is reversed
	if dotE > abMin && dotE < abMax {
		if d, ok := PointDistance(e, a, b, reverse, false); ok {
			if AlmostEqual(d, 0, Tol) {
				if dF, okF := PointDistance(f, a, b, reverse, true); !okF || dF < 0 || AlmostEqual(dF*overlap, 0, Tol) {
					d = math.NaN()
				}
			}
			if !math.IsNaN(d) {
				distances = append(distances, d)
			}
		}
	}

	if dotF > abMin && dotF < abMax {
		if d, ok := PointDistance(f, a, b, reverse, false); ok {
			if AlmostEqual(d, 0, Tol) {
				if dE, okE := PointDistance(e, a, b, reverse, true); !okE || dE < 0 || AlmostEqual(dE*overlap, 0, Tol) {
					d = math.NaN()
				}
			}
			if !math.IsNaN(d) {
				distances = append(distances, d)
			}
		}
	}

	if len(distances) == 0 {
		return 0, false
	}
	min := distances[0]
	for _, d := range distances[1:] {
		if d < min {
			min = d
		}
	}
	return min, true
}

// PolygonSlideDistance returns how far ring B can slide along
// direction before touching ring A. With ignoreNegative true,
// negative distances (B moving away) are discarded.
func PolygonSlideDistance(a, b OffsetRing, direction Point, ignoreNegative bool) (float64, bool) {
	dir := NormalizeVector(direction)

	edgeA := closedRing(a)
	edgeB := closedRing(b)

	var distance float64
	found := false

	for i := 0; i < len(edgeB)-1; i++ {
		for j := 0; j < len(edgeA)-1; j++ {
			a1, a2 := edgeA[j], edgeA[j+1]
			b1, b2 := edgeB[i], edgeB[i+1]
			// ignore degenerate edges
			if SamePoint(a1, a2, Tol) || SamePoint(b1, b2, Tol) {
				continue
			}
			d, ok := SegmentDistance(b1, b2, a1, a2, dir)
			if !ok {
				continue
			}
			if !found || d < distance {
				if !ignoreNegative || d > 0 || AlmostEqual(d, 0, Tol) {
					distance = d
					found = true
				}
			}
		}
	}
	return distance, found
}

// PolygonProjectionDistance projects every point of B onto the edges
// of A along direction and returns the largest of the per-point
// minimum distances: how far B must travel for every point to land on A.
func PolygonProjectionDistance(a, b OffsetRing, direction Point) (float64, bool) {
	edgeA := closedRing(a)

	var distance float64
	found := false

	for i := range b.Points {
		p := b.At(i)
		// the shortest projection of this point onto A
		var minProj float64
		minFound := false
		for j := 0; j < len(edgeA)-1; j++ {
			s1, s2 := edgeA[j], edgeA[j+1]
			if math.Abs((s2.Y-s1.Y)*direction.X-(s2.X-s1.X)*direction.Y) < Tol {
				continue
			}
			d, ok := PointDistance(p, s1, s2, direction, false)
			if ok && (!minFound || d < minProj) {
				minProj = d
				minFound = true
			}
		}
		if minFound && (!found || minProj > distance) {
			distance = minProj
			found = true
		}
	}
	return distance, found
}

// closedRing materializes an offset ring with the loop explicitly
// closed.
func closedRing(r OffsetRing) []Point {
	out := make([]Point, 0, len(r.Points)+1)
	for i := range r.Points {
		out = append(out, r.At(i))
	}
	if len(out) > 0 && !SamePoint(out[0], out[len(out)-1], Tol) {
		out = append(out, out[0])
	}
	return out
}
