// Command deepnest nests the parts of a project file onto its sheets
// and writes the resulting layout as DXF, PDF, XLSX and G-code.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/piwi3910/deepnest/internal/engine"
	"github.com/piwi3910/deepnest/internal/export"
	"github.com/piwi3910/deepnest/internal/gcode"
	"github.com/piwi3910/deepnest/internal/importer"
	"github.com/piwi3910/deepnest/internal/model"
	"github.com/piwi3910/deepnest/internal/project"
)

func main() {
	var (
		projectPath = flag.String("project", "", "project JSON file to nest")
		csvPath     = flag.String("csv", "", "CSV part list to nest instead of a project")
		sheetW      = flag.Float64("sheet-width", 2440, "sheet width when nesting a CSV part list")
		sheetH      = flag.Float64("sheet-height", 1220, "sheet height when nesting a CSV part list")
		sheetQty    = flag.Int("sheet-quantity", 10, "sheet quantity when nesting a CSV part list")
		outDir      = flag.String("out", ".", "output directory")
		iterations  = flag.Int("iterations", 50, "number of individuals to evaluate before stopping")
		threads     = flag.Int("threads", 0, "worker threads (0 = config default)")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	proj, err := loadInputs(*projectPath, *csvPath, *sheetW, *sheetH, *sheetQty)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *threads > 0 {
		proj.Config.Threads = *threads
	}

	nest, err := engine.New(proj.Config, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var mu sync.Mutex
	evaluated := 0
	done := make(chan struct{})

	onProgress := func(e engine.Event) {
		if e.Kind != engine.EventProgress || e.Fraction >= 0 {
			return
		}
		mu.Lock()
		evaluated++
		n := evaluated
		mu.Unlock()
		if n >= *iterations {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	}

	if err := nest.Start(proj.Parts, proj.Sheets, onProgress, nil); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	<-done
	nest.Stop()

	results := nest.BestResults()
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "error: no placement found")
		os.Exit(1)
	}
	best := results[0]
	proj.Results = results

	layouts := engine.BuildLayout(best, proj.Parts, proj.Sheets)
	stats := model.ComputeStats(best, engine.AreasBySource(proj.Parts))

	fmt.Printf("placed %d parts on %d sheets, utilization %.1f%%, fitness %.2f\n",
		stats.PartsPlaced, stats.SheetsUsed, stats.Utilization, best.Fitness)

	if err := writeOutputs(*outDir, proj, layouts, stats); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadInputs(projectPath, csvPath string, sheetW, sheetH float64, sheetQty int) (project.Project, error) {
	switch {
	case projectPath != "":
		return project.Load(projectPath)
	case csvPath != "":
		result := importer.ImportCSV(csvPath)
		if len(result.Errors) > 0 {
			return project.Project{}, fmt.Errorf("import %s: %s", csvPath, result.Errors[0])
		}
		proj := project.NewProject()
		proj.Name = filepath.Base(csvPath)
		proj.Parts = result.Parts
		proj.Sheets = []model.Sheet{model.RectSheet("Stock", sheetW, sheetH, sheetQty)}
		return proj, nil
	default:
		return project.Project{}, fmt.Errorf("either -project or -csv is required")
	}
}

func writeOutputs(dir string, proj project.Project, layouts []engine.SheetLayout, stats model.NestStats) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := export.ExportDXF(filepath.Join(dir, "nest.dxf"), layouts); err != nil {
		return fmt.Errorf("dxf: %w", err)
	}
	if err := export.ExportPDF(filepath.Join(dir, "nest.pdf"), layouts, stats); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	if err := export.ExportXLSX(filepath.Join(dir, "cutlist.xlsx"), layouts, stats); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := export.ExportLabels(filepath.Join(dir, "labels.pdf"), layouts); err != nil {
		return fmt.Errorf("labels: %w", err)
	}

	gen := gcode.New(proj.GCode)
	for i, program := range gen.GenerateAll(layouts) {
		name := filepath.Join(dir, fmt.Sprintf("sheet-%d.nc", i+1))
		if err := os.WriteFile(name, []byte(program), 0644); err != nil {
			return fmt.Errorf("gcode: %w", err)
		}
	}

	if err := project.SaveWithBackup(filepath.Join(dir, "project.json"), proj); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	return nil
}
