// Package gcode turns nested sheet layouts into CNC profile-cutting
// programs. Parts are cut along their polygon outlines (holes first),
// in multiple depth passes, with placements ordered by a
// nearest-neighbor heuristic to reduce rapid travel. Cut lines that
// were merged with an already-cut neighbour are skipped.
package gcode

import (
	"fmt"
	"math"
	"strings"

	"github.com/piwi3910/deepnest/internal/engine"
	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
)

// Settings holds the machining parameters.
type Settings struct {
	FeedRate     float64 `json:"feed_rate"`     // cutting feed, units/min
	PlungeRate   float64 `json:"plunge_rate"`   // plunge feed, units/min
	SpindleSpeed int     `json:"spindle_speed"` // RPM
	SafeZ        float64 `json:"safe_z"`        // retract height
	CutDepth     float64 `json:"cut_depth"`     // total material thickness
	PassDepth    float64 `json:"pass_depth"`    // depth per pass
	Profile      string  `json:"profile"`       // post-processor profile name
	OrderPaths   bool    `json:"order_paths"`   // nearest-neighbor toolpath ordering
	SkipMerged   bool    `json:"skip_merged"`   // skip shared cut lines already cut
}

// DefaultSettings returns machining defaults for 18mm sheet stock.
func DefaultSettings() Settings {
	return Settings{
		FeedRate:     1500,
		PlungeRate:   500,
		SpindleSpeed: 18000,
		SafeZ:        5,
		CutDepth:     18,
		PassDepth:    6,
		Profile:      "Generic",
		OrderPaths:   true,
		SkipMerged:   true,
	}
}

// Generator produces G-code from nested sheet layouts.
type Generator struct {
	Settings Settings
	profile  Profile
}

// New builds a generator resolving the configured post-processor
// profile.
func New(settings Settings) *Generator {
	return &Generator{Settings: settings, profile: GetProfile(settings.Profile)}
}

// GenerateAll produces one program per sheet.
func (g *Generator) GenerateAll(layouts []engine.SheetLayout) []string {
	var programs []string
	for i, layout := range layouts {
		programs = append(programs, g.GenerateSheet(layout, i+1))
	}
	return programs
}

// GenerateSheet produces the program for a single sheet.
func (g *Generator) GenerateSheet(layout engine.SheetLayout, sheetNum int) string {
	var b strings.Builder

	g.writeHeader(&b, layout, sheetNum)

	parts := layout.Parts
	if g.Settings.OrderPaths && len(parts) > 1 {
		parts = orderParts(parts)
		b.WriteString(g.comment("Toolpath ordering: nearest-neighbor"))
	}

	// outline edges already cut on this sheet, for merged-line skipping
	var cutEdges [][2]geom.Point

	for i, part := range parts {
		b.WriteString(g.comment(fmt.Sprintf("Part %d: %s", i+1, part.Name)))
		// holes before the outer profile so the part stays anchored
		for _, hole := range part.Poly.Children {
			g.writeProfile(&b, hole.Points, nil, &cutEdges)
		}
		var merged []model.MergedSegment
		if g.Settings.SkipMerged {
			merged = part.Placement.MergedSegments
		}
		g.writeProfile(&b, part.Poly.Points, merged, &cutEdges)
	}

	g.writeFooter(&b)
	return b.String()
}

// orderParts reorders placements with a nearest-neighbor heuristic
// starting from the sheet origin, reducing total rapid travel.
func orderParts(parts []engine.PlacedPart) []engine.PlacedPart {
	remaining := make([]engine.PlacedPart, len(parts))
	copy(remaining, parts)
	ordered := make([]engine.PlacedPart, 0, len(parts))

	curX, curY := 0.0, 0.0
	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := math.MaxFloat64
		for i, p := range remaining {
			bb := p.Poly.Bounds()
			cx := bb.X + bb.W/2
			cy := bb.Y + bb.H/2
			dist := math.Hypot(cx-curX, cy-curY)
			if dist < bestDist {
				bestDist = dist
				bestIdx = i
			}
		}
		chosen := remaining[bestIdx]
		ordered = append(ordered, chosen)
		bb := chosen.Poly.Bounds()
		curX = bb.X + bb.W/2
		curY = bb.Y + bb.H/2
		remaining[bestIdx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}
	return ordered
}

// writeProfile cuts a closed ring in depth passes. Edges lying on one
// of the part's merged segments are cut only once per sheet: the
// first part to traverse the shared line cuts it, later parts pass
// over it at safe height. cutEdges carries every edge already cut on
// this sheet.
func (g *Generator) writeProfile(b *strings.Builder, ring []geom.Point, merged []model.MergedSegment, cutEdges *[][2]geom.Point) {
	if len(ring) < 3 {
		return
	}

	passes := int(math.Ceil(g.Settings.CutDepth / g.Settings.PassDepth))
	if passes < 1 {
		passes = 1
	}

	// decide once per edge; every pass repeats the same moves
	n := len(ring)
	skipped := make([]bool, n)
	for i := 0; i < n; i++ {
		a, c := ring[i], ring[(i+1)%n]
		if cutEdges == nil {
			continue
		}
		if edgeOnSegments(a, c, merged) && edgeCovered(a, c, *cutEdges) {
			skipped[i] = true
			continue
		}
		*cutEdges = append(*cutEdges, [2]geom.Point{a, c})
	}

	for pass := 1; pass <= passes; pass++ {
		depth := math.Min(float64(pass)*g.Settings.PassDepth, g.Settings.CutDepth)
		b.WriteString(g.comment(fmt.Sprintf("Pass %d at Z%.3f", pass, -depth)))

		g.rapidTo(b, ring[0].X, ring[0].Y)
		g.plunge(b, -depth)

		for i := 0; i < n; i++ {
			next := ring[(i+1)%n]
			if skipped[i] {
				// a neighbour's cut already freed this edge
				g.retract(b)
				g.rapidTo(b, next.X, next.Y)
				g.plunge(b, -depth)
				continue
			}
			g.feedTo(b, next.X, next.Y)
		}
		g.retract(b)
	}
}

// edgeOnSegments reports whether both endpoints of the edge lie on
// one of the merged segments.
func edgeOnSegments(a, b geom.Point, segments []model.MergedSegment) bool {
	for _, seg := range segments {
		if onSegmentSpan(a, seg.Start, seg.End) && onSegmentSpan(b, seg.Start, seg.End) {
			return true
		}
	}
	return false
}

// edgeCovered reports whether the edge lies on an already-cut edge.
func edgeCovered(a, b geom.Point, cutEdges [][2]geom.Point) bool {
	for _, e := range cutEdges {
		if onSegmentSpan(a, e[0], e[1]) && onSegmentSpan(b, e[0], e[1]) {
			return true
		}
	}
	return false
}

func onSegmentSpan(p, s1, s2 geom.Point) bool {
	if geom.SamePoint(p, s1, geom.RectangleTol) || geom.SamePoint(p, s2, geom.RectangleTol) {
		return true
	}
	return geom.OnSegmentExclusive(s1, s2, p)
}

func (g *Generator) writeHeader(b *strings.Builder, layout engine.SheetLayout, sheetNum int) {
	b.WriteString(g.comment(fmt.Sprintf("Sheet %d: %s", sheetNum, layout.Name)))
	b.WriteString(g.comment(fmt.Sprintf("Parts: %d", len(layout.Parts))))
	for _, code := range g.profile.StartCode {
		b.WriteString(code + "\n")
	}
	fmt.Fprintf(b, g.profile.SpindleStart+"\n", g.Settings.SpindleSpeed)
	g.retract(b)
}

func (g *Generator) writeFooter(b *strings.Builder) {
	for _, code := range g.profile.EndCode {
		b.WriteString(strings.ReplaceAll(code, "[SafeZ]", g.coord(g.Settings.SafeZ)) + "\n")
	}
}

func (g *Generator) rapidTo(b *strings.Builder, x, y float64) {
	fmt.Fprintf(b, "%s X%s Y%s\n", g.profile.RapidMove, g.coord(x), g.coord(y))
}

func (g *Generator) feedTo(b *strings.Builder, x, y float64) {
	fmt.Fprintf(b, "%s X%s Y%s F%s\n", g.profile.FeedMove, g.coord(x), g.coord(y), g.coord(g.Settings.FeedRate))
}

func (g *Generator) plunge(b *strings.Builder, z float64) {
	fmt.Fprintf(b, "%s Z%s F%s\n", g.profile.FeedMove, g.coord(z), g.coord(g.Settings.PlungeRate))
}

func (g *Generator) retract(b *strings.Builder) {
	fmt.Fprintf(b, "%s Z%s\n", g.profile.RapidMove, g.coord(g.Settings.SafeZ))
}

func (g *Generator) comment(text string) string {
	if g.profile.CommentSuffix != "" {
		return fmt.Sprintf("%s %s %s\n", g.profile.CommentPrefix, text, g.profile.CommentSuffix)
	}
	return fmt.Sprintf("%s %s\n", g.profile.CommentPrefix, text)
}

func (g *Generator) coord(v float64) string {
	return fmt.Sprintf("%.*f", g.profile.DecimalPlaces, v)
}
