package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCSVDelimiter(t *testing.T) {
	cases := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "name,width,height\nA,100,200\n", ','},
		{"semicolon", "name;width;height\nA;100;200\n", ';'},
		{"tab", "name\twidth\theight\nA\t100\t200\n", '\t'},
		{"pipe", "name|width|height\nA|100|200\n", '|'},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectCSVDelimiter([]byte(tc.data)))
		})
	}
}

func TestDetectColumns(t *testing.T) {
	mapping, ok := DetectColumns([]string{"Part Name", "W", "H", "Qty"})
	require.True(t, ok)
	assert.Equal(t, 0, mapping.Name)
	assert.Equal(t, 1, mapping.Width)
	assert.Equal(t, 2, mapping.Height)
	assert.Equal(t, 3, mapping.Quantity)

	_, ok = DetectColumns([]string{"foo", "bar", "baz"})
	assert.False(t, ok)
}

func TestImportCSVFromReader(t *testing.T) {
	csv := "name,width,height,qty\nShelf,800,300,2\nDoor,400,700,1\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 2)

	shelf := result.Parts[0]
	assert.Equal(t, "Shelf", shelf.Name)
	assert.Equal(t, 2, shelf.Quantity)
	assert.InDelta(t, 800*300, shelf.Polygon.Area(), 1e-9)
	assert.True(t, shelf.Polygon.IsRectangle(0))
}

func TestImportCSVDecimalComma(t *testing.T) {
	csv := "name;width;height\nPanel;120,5;60,25\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ';')

	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 1)
	bb := result.Parts[0].Polygon.Bounds()
	assert.InDelta(t, 120.5, bb.W, 1e-9)
	assert.InDelta(t, 60.25, bb.H, 1e-9)
}

func TestImportCSVInvalidRows(t *testing.T) {
	csv := "name,width,height\nGood,100,50\nBad,-5,50\nWorse,abc,50\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	assert.Len(t, result.Parts, 1)
	assert.Len(t, result.Errors, 2)
}

func TestImportCSVMissingNameGetsWarning(t *testing.T) {
	csv := "name,width,height\n,100,50\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	require.Len(t, result.Parts, 1)
	assert.Equal(t, "Part 1", result.Parts[0].Name)
	assert.NotEmpty(t, result.Warnings)
}

func TestImportCSVNoHeaderAssumesPositional(t *testing.T) {
	csv := "Shelf,800,300,2\nDoor,400,700,1\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	require.Len(t, result.Parts, 2)
	assert.NotEmpty(t, result.Warnings, "positional fallback warns")
}

func TestImportCSVEmptyInput(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader(""), ',')
	assert.NotEmpty(t, result.Errors)
}

func TestIsEmptyRow(t *testing.T) {
	assert.True(t, isEmptyRow([]string{"", "  ", ""}))
	assert.False(t, isEmptyRow([]string{"", "x"}))
}
