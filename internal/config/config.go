// Package config resolves the inputs of an invocation and manages the
// user-level preferences file of the placeops CLI
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// Config represents the user's placeops preferences
type Config struct {
	// DefaultExperienceID is used when no experience id is supplied
	DefaultExperienceID int64 `json:"default_experience_id,omitempty"`

	// Preferences stores user preferences
	Preferences Preferences `json:"preferences"`

	// Version of the config schema
	Version string `json:"version"`
}

// Preferences stores user preferences
type Preferences struct {
	// ColorOutput controls whether to use colored output
	ColorOutput bool `json:"color_output"`

	// Verbose controls verbose output
	Verbose bool `json:"verbose"`

	// ConfirmDelete controls whether delete asks before removing a place
	ConfirmDelete bool `json:"confirm_delete"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// configPath returns the path to the config file
func configPath() string {
	return filepath.Join(xdg.ConfigHome, "placeops", "config.json")
}

// Path returns the location of the preferences file
func Path() string {
	return configPath()
}

// Load loads the configuration from disk or creates a new one
func Load() (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = load()
	})

	if err != nil {
		return nil, err
	}

	return instance, nil
}

// load reads the config from disk or creates default
func load() (*Config, error) {
	path := configPath()

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled via configPath()
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// defaultConfig returns a default configuration
func defaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Preferences: Preferences{
			ColorOutput:   true,
			Verbose:       false,
			ConfirmDelete: true,
		},
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	mu.Lock()
	defer mu.Unlock()

	path := configPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically by writing to temp file then renaming
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// GetDefaultExperienceID returns the stored default experience, or zero
func (c *Config) GetDefaultExperienceID() int64 {
	mu.RLock()
	defer mu.RUnlock()
	return c.DefaultExperienceID
}

// SetDefaultExperienceID stores the default experience
func (c *Config) SetDefaultExperienceID(id int64) error {
	if id < 0 {
		return fmt.Errorf("experience id must be positive, got %d", id)
	}

	mu.Lock()
	c.DefaultExperienceID = id
	mu.Unlock()

	return c.Save()
}

// Reset resets the configuration to defaults
func (c *Config) Reset() error {
	mu.Lock()
	*c = *defaultConfig()
	mu.Unlock()

	return c.Save()
}
