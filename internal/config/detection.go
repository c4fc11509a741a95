package config

import (
	"os"
	"path/filepath"
)

// ConfigFile represents a detected configuration file
type ConfigFile struct {
	Path   string
	Format string
}

// DefaultConfigNames lists the project config files in priority order
var DefaultConfigNames = []string{"placeops.yaml", "placeops.yml", "placeops.json", "placeops.toml"}

// DetectConfigFile finds the first project config file in dir.
// It returns nil when none exists.
func DetectConfigFile(dir string) *ConfigFile {
	for _, name := range DefaultConfigNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return &ConfigFile{Path: path, Format: formatOf(name)}
	}
	return nil
}

func formatOf(name string) string {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}
