package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/deepnest/internal/engine"
)

// LabelInfo holds the data encoded into each part label's QR code.
type LabelInfo struct {
	PartName   string  `json:"name"`
	SheetIndex int     `json:"sheet"`
	SheetName  string  `json:"sheet_name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
	InHole     bool    `json:"in_hole,omitempty"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns,
// 10 rows per page) on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels for all placed
// parts. Each label carries the part name, its sheet, and a QR code
// encoding the placement as JSON.
func ExportLabels(path string, layouts []engine.SheetLayout) error {
	var labels []LabelInfo
	for sheetIdx, layout := range layouts {
		for _, part := range layout.Parts {
			labels = append(labels, LabelInfo{
				PartName:   part.Name,
				SheetIndex: sheetIdx + 1,
				SheetName:  layout.Name,
				X:          part.Placement.X,
				Y:          part.Placement.Y,
				Rotation:   part.Placement.Rotation,
				InHole:     part.Placement.InHole,
			})
		}
	}
	if len(labels) == 0 {
		return fmt.Errorf("no parts placed to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}
		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label, i); err != nil {
			return fmt.Errorf("render label for %q: %w", label.PartName, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo, idx int) error {
	// light border as a cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return err
	}

	imgName := fmt.Sprintf("qr-%d", idx)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(png))
	pdf.ImageOptions(imgName, x+labelPadding, y+(labelHeight-qrSize)/2, qrSize, qrSize, false, opts, 0, "")

	textX := x + labelPadding + qrSize + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding+1)
	pdf.CellFormat(textW, 4, info.PartName, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+6)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("Sheet %d (%s)", info.SheetIndex, info.SheetName), "", 0, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+10)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("at (%.1f, %.1f) rot %.0f", info.X, info.Y, info.Rotation), "", 0, "L", false, 0, "")

	if info.InHole {
		pdf.SetXY(textX, y+labelPadding+14)
		pdf.CellFormat(textW, 3.5, "nested in hole", "", 0, "L", false, 0, "")
	}
	return nil
}
