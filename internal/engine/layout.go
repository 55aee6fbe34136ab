package engine

import (
	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
)

// PlacedPart pairs a placement with its world-space outline.
type PlacedPart struct {
	Placement model.Placement
	Poly      geom.Polygon
	Name      string
}

// SheetLayout is one sheet of a result materialized into world-space
// geometry for exporters and toolpath generation.
type SheetLayout struct {
	Sheet geom.Polygon
	Name  string
	Parts []PlacedPart
}

// BuildLayout materializes a result against the original part and
// sheet lists. The inputs must be the same lists, in the same order,
// that produced the result.
func BuildLayout(result model.NestResult, parts []model.Part, sheets []model.Sheet) []SheetLayout {
	type proto struct {
		poly geom.Polygon
		name string
	}
	bySource := make(map[int]proto)

	nextSource := 0
	for _, part := range parts {
		p := part.Polygon.Clone()
		canonicalizeWinding(&p)
		assignSources(&p, &nextSource)
		bySource[p.Source] = proto{poly: p, name: part.Name}
	}
	for _, sheet := range sheets {
		s := sheet.Polygon.Clone()
		canonicalizeWinding(&s)
		assignSources(&s, &nextSource)
		s.Sheet = true
		bySource[s.Source] = proto{poly: s, name: sheet.Name}
	}

	var layouts []SheetLayout
	for _, sp := range result.Placements {
		sheetProto, ok := bySource[sp.SheetSource]
		if !ok {
			continue
		}
		layout := SheetLayout{Sheet: sheetProto.poly, Name: sheetProto.name}
		for _, pl := range sp.Placements {
			partProto, ok := bySource[pl.Source]
			if !ok {
				continue
			}
			poly := partProto.poly.Rotated(pl.Rotation).Translated(pl.X, pl.Y)
			poly.ID = pl.ID
			layout.Parts = append(layout.Parts, PlacedPart{Placement: pl, Poly: poly, Name: partProto.name})
		}
		layouts = append(layouts, layout)
	}
	return layouts
}

// AreasBySource returns the net area of each distinct part geometry
// keyed by its source id, for statistics.
func AreasBySource(parts []model.Part) map[int]float64 {
	out := make(map[int]float64)
	nextSource := 0
	for _, part := range parts {
		p := part.Polygon.Clone()
		canonicalizeWinding(&p)
		assignSources(&p, &nextSource)
		out[p.Source] = p.NetArea()
	}
	return out
}
