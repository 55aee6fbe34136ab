package project

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/piwi3910/deepnest/internal/model"
)

// AppConfig holds application-wide preferences and the default
// nesting configuration applied to new projects.
type AppConfig struct {
	Defaults       model.Config `json:"defaults"`
	RecentProjects []string     `json:"recent_projects"`
}

// maxRecentProjects bounds the recent-project history.
const maxRecentProjects = 10

// DefaultAppConfig returns an AppConfig populated with the stock
// nesting defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Defaults:       model.DefaultConfig(),
		RecentProjects: []string{},
	}
}

// AddRecentProject records a project path at the front of the recent
// list, deduplicated and capped.
func (c *AppConfig) AddRecentProject(path string) {
	recent := []string{path}
	for _, p := range c.RecentProjects {
		if p != path && len(recent) < maxRecentProjects {
			recent = append(recent, p)
		}
	}
	c.RecentProjects = recent
}

// DefaultConfigDir returns the default directory for application
// configuration: ~/.deepnest on every platform.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".deepnest")
}

// DefaultConfigPath returns the default path of the app config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// SaveAppConfig persists an AppConfig to the given path as JSON,
// creating missing parent directories.
func SaveAppConfig(path string, config AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAppConfig reads an AppConfig from the given path. A missing
// file yields DefaultAppConfig with no error.
func LoadAppConfig(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultAppConfig(), nil
		}
		return AppConfig{}, err
	}
	var config AppConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return AppConfig{}, err
	}
	if config.Defaults.Rotations == 0 {
		config.Defaults = model.DefaultConfig()
	}
	return config, nil
}
