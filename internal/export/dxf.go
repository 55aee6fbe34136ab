// Package export serializes nest results to DXF drawings, PDF layout
// reports, XLSX cut lists and QR-coded part labels.
package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/table"

	"github.com/piwi3910/deepnest/internal/engine"
	"github.com/piwi3910/deepnest/internal/geom"
)

// ExportDXF writes one DXF drawing per nest result, with a layer per
// sheet. Part outlines and their holes are emitted as closed
// lightweight polylines; merged cut segments go to a separate layer
// so a CAM stage can treat them as single cuts.
func ExportDXF(path string, layouts []engine.SheetLayout) error {
	if len(layouts) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	d := dxf.NewDrawing()

	for i, layout := range layouts {
		layer := fmt.Sprintf("SHEET_%d", i+1)
		if _, err := d.AddLayer(layer, dxf.DefaultColor, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("add layer %q: %w", layer, err)
		}
		if err := writeOutline(d, layout.Sheet.Points); err != nil {
			return err
		}
		for _, part := range layout.Parts {
			if err := writePolygon(d, part.Poly); err != nil {
				return err
			}
		}
	}

	if _, err := d.AddLayer("MERGED", color.Green, table.LT_CONTINUOUS, true); err != nil {
		return fmt.Errorf("add merged layer: %w", err)
	}
	for _, layout := range layouts {
		for _, part := range layout.Parts {
			for _, seg := range part.Placement.MergedSegments {
				if _, err := d.Line(seg.Start.X, seg.Start.Y, 0, seg.End.X, seg.End.Y, 0); err != nil {
					return fmt.Errorf("write merged segment: %w", err)
				}
			}
		}
	}

	return d.SaveAs(path)
}

func writePolygon(d *drawing.Drawing, p geom.Polygon) error {
	if err := writeOutline(d, p.Points); err != nil {
		return err
	}
	for _, c := range p.Children {
		if err := writePolygon(d, c); err != nil {
			return err
		}
	}
	return nil
}

func writeOutline(d *drawing.Drawing, ring []geom.Point) error {
	if len(ring) < 2 {
		return nil
	}
	vertices := make([][]float64, len(ring))
	for i, pt := range ring {
		vertices[i] = []float64{pt.X, pt.Y, 0}
	}
	if _, err := d.LwPolyline(true, vertices...); err != nil {
		return fmt.Errorf("write outline: %w", err)
	}
	return nil
}
