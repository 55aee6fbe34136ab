package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/piwi3910/deepnest/internal/model"
)

// Preset is a named nesting configuration.
type Preset struct {
	Name   string       `json:"name"`
	Config model.Config `json:"config"`
}

// PresetsPath returns the default path of the presets file.
func PresetsPath() string {
	return filepath.Join(DefaultConfigDir(), "presets.json")
}

// LoadPresets reads all saved presets. A missing file yields an empty
// list.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var presets []Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse presets %q: %w", path, err)
	}
	return presets, nil
}

// SavePreset adds or replaces the preset with the same name and
// persists the list sorted by name.
func SavePreset(path string, preset Preset) error {
	if preset.Name == "" {
		return fmt.Errorf("preset name must not be empty")
	}
	presets, err := LoadPresets(path)
	if err != nil {
		return err
	}
	replaced := false
	for i := range presets {
		if presets[i].Name == preset.Name {
			presets[i] = preset
			replaced = true
			break
		}
	}
	if !replaced {
		presets = append(presets, preset)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return writePresets(path, presets)
}

// DeletePreset removes the preset with the given name. Deleting an
// unknown name is not an error.
func DeletePreset(path, name string) error {
	presets, err := LoadPresets(path)
	if err != nil {
		return err
	}
	out := presets[:0]
	for _, p := range presets {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return writePresets(path, out)
}

func writePresets(path string, presets []Preset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
