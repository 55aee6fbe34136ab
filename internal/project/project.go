// Package project persists nesting projects, application config and
// named configuration presets as JSON files.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/deepnest/internal/gcode"
	"github.com/piwi3910/deepnest/internal/model"
)

// Project ties a part list, sheets and configuration together for
// save/load, with the last results attached when available.
type Project struct {
	Name     string             `json:"name"`
	Parts    []model.Part       `json:"parts"`
	Sheets   []model.Sheet      `json:"sheets"`
	Config   model.Config       `json:"config"`
	GCode    gcode.Settings     `json:"gcode"`
	Results  []model.NestResult `json:"results,omitempty"`
	SavedAt  time.Time          `json:"saved_at,omitempty"`
	FilePath string             `json:"-"`
}

// NewProject returns an empty project with default configuration.
func NewProject() Project {
	return Project{
		Name:   "Untitled",
		Parts:  []model.Part{},
		Sheets: []model.Sheet{},
		Config: model.DefaultConfig(),
		GCode:  gcode.DefaultSettings(),
	}
}

// Save writes the project to path as indented JSON, creating parent
// directories as needed.
func Save(path string, p Project) error {
	p.SavedAt = time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SaveWithBackup saves the project, first moving any existing file to
// a timestamped backup alongside it.
func SaveWithBackup(path string, p Project) error {
	if _, err := os.Stat(path); err == nil {
		backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("backup existing project: %w", err)
		}
	}
	return Save(path, p)
}

// Load reads a project from path.
func Load(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, err
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("parse project %q: %w", path, err)
	}
	if p.Config.Rotations == 0 {
		// older project files without a config block
		p.Config = model.DefaultConfig()
	}
	p.FilePath = path
	return p, nil
}
