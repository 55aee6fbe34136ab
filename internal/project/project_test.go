package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/deepnest/internal/model"
)

func sampleProject() Project {
	p := NewProject()
	p.Name = "Cabinet"
	p.Parts = []model.Part{model.RectPart("side", 700, 400, 2)}
	p.Sheets = []model.Sheet{model.RectSheet("mdf", 2440, 1220, 3)}
	return p
}

func TestProjectSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cabinet.json")
	require.NoError(t, Save(path, sampleProject()))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Cabinet", loaded.Name)
	require.Len(t, loaded.Parts, 1)
	assert.Equal(t, "side", loaded.Parts[0].Name)
	assert.Equal(t, 2, loaded.Parts[0].Quantity)
	assert.InDelta(t, 700*400, loaded.Parts[0].Polygon.Area(), 1e-9)
	require.Len(t, loaded.Sheets, 1)
	assert.Equal(t, model.DefaultConfig().Rotations, loaded.Config.Rotations)
	assert.Equal(t, path, loaded.FilePath)
}

func TestProjectLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestProjectLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveWithBackupKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.json")

	require.NoError(t, SaveWithBackup(path, sampleProject()))
	require.NoError(t, SaveWithBackup(path, sampleProject()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	backups := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".bak" {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestAppConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultAppConfig()
	cfg.Defaults.Rotations = 8
	cfg.AddRecentProject("/tmp/a.json")
	cfg.AddRecentProject("/tmp/b.json")
	cfg.AddRecentProject("/tmp/a.json") // moves to front, no duplicate

	require.NoError(t, SaveAppConfig(path, cfg))
	loaded, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, loaded.Defaults.Rotations)
	require.Len(t, loaded.RecentProjects, 2)
	assert.Equal(t, "/tmp/a.json", loaded.RecentProjects[0])
}

func TestLoadAppConfigMissingGivesDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().Rotations, cfg.Defaults.Rotations)
}

func TestRecentProjectsCapped(t *testing.T) {
	cfg := DefaultAppConfig()
	for i := 0; i < 15; i++ {
		cfg.AddRecentProject(filepath.Join("/tmp", string(rune('a'+i))))
	}
	assert.Len(t, cfg.RecentProjects, 10)
}

func TestPresetsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")

	fine := model.DefaultConfig()
	fine.Rotations = 16
	require.NoError(t, SavePreset(path, Preset{Name: "fine", Config: fine}))
	require.NoError(t, SavePreset(path, Preset{Name: "coarse", Config: model.DefaultConfig()}))

	presets, err := LoadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "coarse", presets[0].Name, "presets sorted by name")

	// replace by name
	fine.Rotations = 32
	require.NoError(t, SavePreset(path, Preset{Name: "fine", Config: fine}))
	presets, err = LoadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, 32, presets[1].Config.Rotations)

	require.NoError(t, DeletePreset(path, "coarse"))
	presets, err = LoadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 1)
}

func TestSavePresetRejectsEmptyName(t *testing.T) {
	assert.Error(t, SavePreset(filepath.Join(t.TempDir(), "p.json"), Preset{}))
}

func TestLoadPresetsMissingFile(t *testing.T) {
	presets, err := LoadPresets(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, presets)
}
