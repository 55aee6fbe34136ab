package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/deepnest/internal/engine"
	"github.com/piwi3910/deepnest/internal/model"
)

// ExportXLSX writes the cut list of a nest result: a summary sheet
// plus one worksheet per stock sheet listing every placement.
func ExportXLSX(path string, layouts []engine.SheetLayout, stats model.NestStats) error {
	if len(layouts) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}

	summaryRows := [][]interface{}{
		{"Sheets used", stats.SheetsUsed},
		{"Parts placed", stats.PartsPlaced},
		{"Parts in holes", stats.PartsInHoles},
		{"Sheet area", stats.SheetArea},
		{"Used area", stats.UsedArea},
		{"Utilization %", stats.Utilization},
		{"Merged cut length", stats.MergedLength},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return err
		}
	}

	header := []interface{}{"Part", "X", "Y", "Rotation", "Width", "Height", "In hole", "Merged length"}
	for i, layout := range layouts {
		name := fmt.Sprintf("Sheet %d", i+1)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		for r, part := range layout.Parts {
			bb := part.Poly.Bounds()
			row := []interface{}{
				part.Name,
				part.Placement.X,
				part.Placement.Y,
				part.Placement.Rotation,
				bb.W,
				bb.H,
				part.Placement.InHole,
				part.Placement.MergedLength,
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
