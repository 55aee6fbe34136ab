package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/deepnest/internal/engine"
	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
)

// partColor represents an RGB color for a placed part.
type partColor struct {
	R, G, B int
}

var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF renders a nest result: one page per sheet with the placed
// outlines, followed by a summary page.
func ExportPDF(path string, layouts []engine.SheetLayout, stats model.NestStats) error {
	if len(layouts) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for i, layout := range layouts {
		pdf.AddPage()
		renderSheetPage(pdf, layout, i+1)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, layouts, stats)

	return pdf.OutputFileAndClose(path)
}

func renderSheetPage(pdf *fpdf.Fpdf, layout engine.SheetLayout, sheetNum int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(0, headerHeight, fmt.Sprintf("Sheet %d: %s", sheetNum, layout.Name), "", 0, "L", false, 0, "")

	sb := layout.Sheet.Bounds()
	if sb.W <= 0 || sb.H <= 0 {
		return
	}

	drawW := pageWidth - marginLeft - marginRight
	drawH := pageHeight - drawAreaTop - marginBottom
	scale := math.Min(drawW/sb.W, drawH/sb.H)

	toPage := func(p geom.Point) fpdf.PointType {
		return fpdf.PointType{
			X: marginLeft + (p.X-sb.X)*scale,
			Y: drawAreaTop + (p.Y-sb.Y)*scale,
		}
	}

	// sheet outline
	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.4)
	pdf.Polygon(ringPoints(layout.Sheet.Points, toPage), "D")

	// parts
	pdf.SetLineWidth(0.2)
	for i, part := range layout.Parts {
		c := partColors[i%len(partColors)]
		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.Polygon(ringPoints(part.Poly.Points, toPage), "FD")
		for _, hole := range part.Poly.Children {
			pdf.SetFillColor(255, 255, 255)
			pdf.Polygon(ringPoints(hole.Points, toPage), "FD")
		}

		bb := part.Poly.Bounds()
		center := toPage(geom.Point{X: bb.X + bb.W/2, Y: bb.Y + bb.H/2})
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(center.X-15, center.Y-2)
		pdf.CellFormat(30, 4, part.Name, "", 0, "C", false, 0, "")
	}

	// merged cut lines on top
	pdf.SetDrawColor(0, 150, 0)
	pdf.SetLineWidth(0.5)
	for _, part := range layout.Parts {
		for _, seg := range part.Placement.MergedSegments {
			a := toPage(seg.Start)
			b := toPage(seg.End)
			pdf.Line(a.X, a.Y, b.X, b.Y)
		}
	}
}

func renderSummaryPage(pdf *fpdf.Fpdf, layouts []engine.SheetLayout, stats model.NestStats) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(0, headerHeight, "Nest Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Sheets used: %d", stats.SheetsUsed),
		fmt.Sprintf("Parts placed: %d", stats.PartsPlaced),
		fmt.Sprintf("Parts nested in holes: %d", stats.PartsInHoles),
		fmt.Sprintf("Material utilization: %.1f%%", stats.Utilization),
		fmt.Sprintf("Merged cut length: %.1f", stats.MergedLength),
	}
	y := marginTop + headerHeight + 6
	for _, line := range lines {
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
		y += 7
	}

	// per-sheet part counts
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginLeft, y+4)
	pdf.CellFormat(0, 7, "Per sheet", "", 1, "L", false, 0, "")
	y += 12
	pdf.SetFont("Helvetica", "", 10)
	for i, layout := range layouts {
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(0, 6, fmt.Sprintf("Sheet %d (%s): %d parts", i+1, layout.Name, len(layout.Parts)), "", 1, "L", false, 0, "")
		y += 6
	}
}

func ringPoints(ring []geom.Point, toPage func(geom.Point) fpdf.PointType) []fpdf.PointType {
	out := make([]fpdf.PointType, len(ring))
	for i, p := range ring {
		out[i] = toPage(p)
	}
	return out
}
