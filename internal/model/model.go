// Package model defines the data types shared across the nesting
// engine: parts, sheets, configuration, placements and results.
package model

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/piwi3910/deepnest/internal/geom"
)

// PlacementType selects the scoring strategy used when comparing
// candidate positions.
type PlacementType string

const (
	PlacementGravity    PlacementType = "gravity"    // compress along x
	PlacementBox        PlacementType = "box"        // minimize bounding box area
	PlacementConvexHull PlacementType = "convexhull" // minimize hull area
)

// Config holds the full nesting configuration. A materialized Config
// is passed to the engine at start; there are no process-wide
// defaults consulted at runtime.
type Config struct {
	Units          string        `json:"units"`
	Scale          float64       `json:"scale"`           // importer units per inch
	Spacing        float64       `json:"spacing"`         // extra offset between parts
	CurveTolerance float64       `json:"curve_tolerance"` // polyline simplification tolerance
	ClipperScale   float64       `json:"clipper_scale"`   // integer grid scale for clipping
	Rotations      int           `json:"rotations"`       // discrete rotations per part
	PopulationSize int           `json:"population_size"`
	MutationRate   int           `json:"mutation_rate"` // percent chance per gene
	Threads        int           `json:"threads"`
	PlacementType  PlacementType `json:"placement_type"`
	MergeLines     bool          `json:"merge_lines"`
	TimeRatio      float64       `json:"time_ratio"` // merged-line bonus weight in [0,1]
	Simplify       bool          `json:"simplify"`   // drop holes during pair preprocessing
	HoleBonus      float64       `json:"hole_bonus"` // fitness bonus per part placed in a hole
	Seed           int64         `json:"seed"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Units:          "mm",
		Scale:          72,
		Spacing:        0,
		CurveTolerance: 0.72,
		ClipperScale:   1e7,
		Rotations:      4,
		PopulationSize: 10,
		MutationRate:   10,
		Threads:        4,
		PlacementType:  PlacementGravity,
		MergeLines:     true,
		TimeRatio:      0.5,
		Simplify:       false,
		HoleBonus:      0.05,
		Seed:           42,
	}
}

// Validate checks the configuration for values the engine cannot run
// with.
func (c Config) Validate() error {
	if c.Rotations < 1 {
		return fmt.Errorf("rotations must be at least 1, got %d", c.Rotations)
	}
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size must be at least 2, got %d", c.PopulationSize)
	}
	if c.MutationRate < 0 || c.MutationRate > 100 {
		return fmt.Errorf("mutation rate must be in [0,100], got %d", c.MutationRate)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.TimeRatio < 0 || c.TimeRatio > 1 {
		return fmt.Errorf("time ratio must be in [0,1], got %v", c.TimeRatio)
	}
	switch c.PlacementType {
	case PlacementGravity, PlacementBox, PlacementConvexHull:
	default:
		return fmt.Errorf("unknown placement type %q", c.PlacementType)
	}
	return nil
}

// Part is a piece to be cut, with its outline in importer units.
type Part struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Polygon  geom.Polygon `json:"polygon"`
	Quantity int          `json:"quantity"`
}

// NewPart wraps an outline into a part with a fresh ID.
func NewPart(name string, poly geom.Polygon, quantity int) Part {
	return Part{
		ID:       uuid.New().String()[:8],
		Name:     name,
		Polygon:  poly,
		Quantity: quantity,
	}
}

// RectPart builds a rectangular part. All vertices are exact.
func RectPart(name string, w, h float64, quantity int) Part {
	return NewPart(name, RectPolygon(w, h), quantity)
}

// Sheet is a stock polygon parts are placed onto.
type Sheet struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Polygon  geom.Polygon `json:"polygon"`
	Quantity int          `json:"quantity"`
}

// NewSheet wraps an outline into a sheet with a fresh ID.
func NewSheet(name string, poly geom.Polygon, quantity int) Sheet {
	poly.Sheet = true
	return Sheet{
		ID:       uuid.New().String()[:8],
		Name:     name,
		Polygon:  poly,
		Quantity: quantity,
	}
}

// RectSheet builds a rectangular sheet.
func RectSheet(name string, w, h float64, quantity int) Sheet {
	return NewSheet(name, RectPolygon(w, h), quantity)
}

// RectPolygon returns a counterclockwise rectangle anchored at the
// origin with exact vertices.
func RectPolygon(w, h float64) geom.Polygon {
	return geom.Polygon{Points: []geom.Point{
		{X: 0, Y: 0, Exact: true},
		{X: w, Y: 0, Exact: true},
		{X: w, Y: h, Exact: true},
		{X: 0, Y: h, Exact: true},
	}}
}

// Placement records where one part instance landed.
type Placement struct {
	ID             int             `json:"id"`
	Source         int             `json:"source"`
	X              float64         `json:"x"`
	Y              float64         `json:"y"`
	Rotation       float64         `json:"rotation"`
	Filename       string          `json:"filename,omitempty"`
	InHole         bool            `json:"in_hole,omitempty"`
	HoleParent     int             `json:"hole_parent,omitempty"`
	MergedLength   float64         `json:"merged_length,omitempty"`
	MergedSegments []MergedSegment `json:"merged_segments,omitempty"`
	Hull           []geom.Point    `json:"hull,omitempty"`
}

// MergedSegment is a world-space cut line shared between two placed
// parts.
type MergedSegment struct {
	Start geom.Point `json:"start"`
	End   geom.Point `json:"end"`
}

// SheetPlacement groups the placements committed to one sheet.
type SheetPlacement struct {
	SheetSource int         `json:"sheet_source"`
	SheetID     int         `json:"sheet_id"`
	Placements  []Placement `json:"placements"`
}

// NestResult is one evaluated layout with its fitness.
type NestResult struct {
	Placements   []SheetPlacement `json:"placements"`
	Fitness      float64          `json:"fitness"`
	Area         float64          `json:"area"`
	MergedLength float64          `json:"merged_length"`
	PartsInHoles int              `json:"parts_in_holes"`
	Index        int              `json:"index"`
}

// PlacedCount returns the number of placed part instances.
func (r NestResult) PlacedCount() int {
	var n int
	for _, s := range r.Placements {
		n += len(s.Placements)
	}
	return n
}

// GeometryError reports invalid input geometry rejected before
// nesting begins.
type GeometryError struct {
	Name   string
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid geometry %q: %s", e.Name, e.Reason)
}

// ValidatePolygon rejects degenerate and self-intersecting outlines.
// Children are validated recursively.
func ValidatePolygon(name string, p geom.Polygon) error {
	if len(p.Points) < 3 {
		return &GeometryError{Name: name, Reason: "fewer than 3 vertices"}
	}
	if math.Abs(p.Area()) < geom.Tol {
		return &GeometryError{Name: name, Reason: "zero area"}
	}
	if selfIntersects(p.Points) {
		return &GeometryError{Name: name, Reason: "self-intersecting outline"}
	}
	for i, c := range p.Children {
		if err := ValidatePolygon(fmt.Sprintf("%s/child %d", name, i), c); err != nil {
			return err
		}
	}
	return nil
}

func selfIntersects(pts []geom.Point) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		a1 := pts[i]
		a2 := pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// skip adjacent edges, which always share a vertex
			if (j+1)%n == i || j == (i+1)%n {
				continue
			}
			b1 := pts[j]
			b2 := pts[(j+1)%n]
			if _, ok := geom.SegmentIntersect(a1, a2, b1, b2, false); ok {
				return true
			}
		}
	}
	return false
}
