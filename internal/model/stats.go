package model

import "math"

// NestStats summarizes a nest result for reporting.
type NestStats struct {
	SheetsUsed   int     `json:"sheets_used"`
	PartsPlaced  int     `json:"parts_placed"`
	PartsInHoles int     `json:"parts_in_holes"`
	SheetArea    float64 `json:"sheet_area"`  // total area of opened sheets
	UsedArea     float64 `json:"used_area"`   // net area of placed parts
	Utilization  float64 `json:"utilization"` // percent
	MergedLength float64 `json:"merged_length"`
}

// ComputeStats summarizes a result. areaBySource maps a part source
// id to the net (hole-subtracted) area of one instance.
func ComputeStats(r NestResult, areaBySource map[int]float64) NestStats {
	stats := NestStats{
		SheetsUsed:   len(r.Placements),
		PartsInHoles: r.PartsInHoles,
		SheetArea:    r.Area,
		MergedLength: r.MergedLength,
	}
	for _, sheet := range r.Placements {
		stats.PartsPlaced += len(sheet.Placements)
		for _, p := range sheet.Placements {
			stats.UsedArea += math.Abs(areaBySource[p.Source])
		}
	}
	if stats.SheetArea > 0 {
		stats.Utilization = stats.UsedArea / stats.SheetArea * 100.0
	}
	return stats
}

// PurchaseEstimate holds the results of a sheet purchasing
// calculation.
type PurchaseEstimate struct {
	TotalPartArea     float64 `json:"total_part_area"`
	SheetArea         float64 `json:"sheet_area"`
	SheetsNeededExact float64 `json:"sheets_needed_exact"`
	SheetsNeededMin   int     `json:"sheets_needed_min"`
	SheetsWithWaste   int     `json:"sheets_with_waste"`
	WastePercent      float64 `json:"waste_percent"`
	EstimatedCost     float64 `json:"estimated_cost"`
	PricePerSheet     float64 `json:"price_per_sheet"`
}

// CalculatePurchaseEstimate computes how many sheets to buy for a
// part list before running a full nest. It works from net polygon
// areas plus a spacing allowance per part and an additional waste
// percentage.
func CalculatePurchaseEstimate(parts []Part, sheet Sheet, spacing, wastePercent, pricePerSheet float64) PurchaseEstimate {
	var totalPartArea float64
	for _, p := range parts {
		bb := p.Polygon.Bounds()
		area := math.Abs(p.Polygon.NetArea())
		// spacing grows the effective footprint on each side
		if spacing > 0 && bb.W > 0 && bb.H > 0 {
			area *= (bb.W + spacing) * (bb.H + spacing) / (bb.W * bb.H)
		}
		totalPartArea += area * float64(p.Quantity)
	}

	sheetArea := math.Abs(sheet.Polygon.NetArea())
	est := PurchaseEstimate{
		TotalPartArea: totalPartArea,
		SheetArea:     sheetArea,
		WastePercent:  wastePercent,
		PricePerSheet: pricePerSheet,
	}
	if sheetArea <= 0 {
		return est
	}

	est.SheetsNeededExact = totalPartArea / sheetArea
	est.SheetsNeededMin = int(math.Ceil(est.SheetsNeededExact))

	wasteFactor := 1.0 + wastePercent/100.0
	est.SheetsWithWaste = int(math.Ceil(est.SheetsNeededExact * wasteFactor))
	if est.SheetsWithWaste < est.SheetsNeededMin {
		est.SheetsWithWaste = est.SheetsNeededMin
	}
	est.EstimatedCost = float64(est.SheetsWithWaste) * pricePerSheet
	return est
}
