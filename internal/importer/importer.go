// Package importer provides CSV and Excel import of rectangular part
// lists. It supports automatic delimiter detection, flexible column
// mapping, and case-insensitive header recognition. Free-form outline
// geometry reaches the engine through project files instead.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/deepnest/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Parts    []model.Part
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the
// data.
type ColumnMapping struct {
	Name     int
	Width    int
	Height   int
	Quantity int
}

// headerAliases maps canonical column names to their accepted aliases
// (all lowercase).
var headerAliases = map[string][]string{
	"name":     {"name", "label", "part", "part name", "description", "desc", "piece", "item"},
	"width":    {"width", "w", "length", "len", "x"},
	"height":   {"height", "h", "depth", "d", "y"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
}

// DetectCSVDelimiter reads the file content and determines the most
// likely CSV delimiter. It tries comma, semicolon, tab, and pipe; the
// delimiter producing the most consistent column count across lines
// wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}
	return bestDelimiter
}

// DetectColumns tries to identify column roles from a header row.
// Returns the mapping and whether the row looks like a header.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Name: -1, Width: -1, Height: -1, Quantity: -1}
	matched := 0

	for idx, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		if normalized == "" {
			continue
		}
		for canonical, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				switch canonical {
				case "name":
					if mapping.Name < 0 {
						mapping.Name = idx
						matched++
					}
				case "width":
					if mapping.Width < 0 {
						mapping.Width = idx
						matched++
					}
				case "height":
					if mapping.Height < 0 {
						mapping.Height = idx
						matched++
					}
				case "quantity":
					if mapping.Quantity < 0 {
						mapping.Quantity = idx
						matched++
					}
				}
			}
		}
	}

	// width and height are the minimum for a usable part list
	return mapping, mapping.Width >= 0 && mapping.Height >= 0
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow converts one data row into a part. Returns the part, an
// error string, and a warning string (either may be empty).
func parseRow(row []string, mapping ColumnMapping, rowLabel string, partCount int) (model.Part, string, string) {
	var warning string

	name := getCell(row, mapping.Name)
	if name == "" {
		name = fmt.Sprintf("Part %d", partCount+1)
		warning = fmt.Sprintf("%s: missing name, using %q", rowLabel, name)
	}

	widthStr := getCell(row, mapping.Width)
	heightStr := getCell(row, mapping.Height)

	width, err := strconv.ParseFloat(strings.ReplaceAll(widthStr, ",", "."), 64)
	if err != nil || width <= 0 {
		return model.Part{}, fmt.Sprintf("%s: invalid width %q", rowLabel, widthStr), ""
	}
	height, err := strconv.ParseFloat(strings.ReplaceAll(heightStr, ",", "."), 64)
	if err != nil || height <= 0 {
		return model.Part{}, fmt.Sprintf("%s: invalid height %q", rowLabel, heightStr), ""
	}

	quantity := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		q, err := strconv.Atoi(qtyStr)
		if err != nil || q < 1 {
			warning = fmt.Sprintf("%s: invalid quantity %q, using 1", rowLabel, qtyStr)
		} else {
			quantity = q
		}
	}

	return model.RectPart(name, width, height, quantity), "", warning
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV reads a part list from a CSV file with delimiter
// auto-detection.
func ImportCSV(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot read file: %v", err)}}
	}
	return ImportCSVFromReader(bytes.NewReader(data), DetectCSVDelimiter(data))
}

// ImportCSVFromReader reads a part list from CSV content with the
// given delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	r := csv.NewReader(reader)
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot parse CSV: %v", err)}}
	}
	return importFromRows(rows, "row")
}

// ImportExcel reads a part list from the first sheet of an Excel
// workbook.
func ImportExcel(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot open workbook: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"workbook has no sheets"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err)}}
	}
	return importFromRows(rows, "row")
}

func importFromRows(rows [][]string, rowPrefix string) ImportResult {
	var result ImportResult
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "no data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	start := 1
	if !hasHeader {
		// assume positional columns: name, width, height, quantity
		mapping = ColumnMapping{Name: 0, Width: 1, Height: 2, Quantity: 3}
		start = 0
		result.Warnings = append(result.Warnings, "no header row detected, assuming name/width/height/quantity columns")
	}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		part, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Parts))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Parts = append(result.Parts, part)
	}

	if len(result.Parts) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "no valid parts found")
	}
	return result
}
