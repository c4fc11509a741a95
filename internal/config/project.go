package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fastertools/placeops/internal/api"
)

// ProjectFile is the checked-in placeops.yaml (or .toml, .json) of a
// repository. It carries defaults for the non-secret inputs.
type ProjectFile struct {
	ExperienceID int64            `yaml:"experience_id,omitempty" toml:"experience_id,omitempty" json:"experience_id,omitempty"`
	PlaceID      int64            `yaml:"place_id,omitempty" toml:"place_id,omitempty" json:"place_id,omitempty"`
	FilePath     string           `yaml:"file_path,omitempty" toml:"file_path,omitempty" json:"file_path,omitempty"`
	VersionType  string           `yaml:"version_type,omitempty" toml:"version_type,omitempty" json:"version_type,omitempty"`
	Timeout      string           `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty"`
	Endpoints    *ProjectEndpoint `yaml:"endpoints,omitempty" toml:"endpoints,omitempty" json:"endpoints,omitempty"`

	// Secrets are decoded only so they can be refused
	Roblosecurity string `yaml:"roblosecurity,omitempty" toml:"roblosecurity,omitempty" json:"roblosecurity,omitempty"`
	APIKey        string `yaml:"api_key,omitempty" toml:"api_key,omitempty" json:"api_key,omitempty"`
}

// ProjectEndpoint overrides the platform base URLs
type ProjectEndpoint struct {
	Universes string `yaml:"universes,omitempty" toml:"universes,omitempty" json:"universes,omitempty"`
	Develop   string `yaml:"develop,omitempty" toml:"develop,omitempty" json:"develop,omitempty"`
	OpenCloud string `yaml:"open_cloud,omitempty" toml:"open_cloud,omitempty" json:"open_cloud,omitempty"`
	Publish   string `yaml:"publish,omitempty" toml:"publish,omitempty" json:"publish,omitempty"`
}

// LoadProjectFile reads and validates a project file. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadProjectFile(path string) (*ProjectFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	project := &ProjectFile{}
	switch format := formatOf(path); format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(project); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "failed to parse YAML")
		}
	case "toml":
		md, err := toml.Decode(string(data), project)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse TOML: unknown key %s", undecoded[0])
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(project); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON")
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	if err := project.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return project, nil
}

// Validate checks the values a project file may carry
func (p *ProjectFile) Validate() error {
	if p.Roblosecurity != "" || p.APIKey != "" {
		return errors.New("credentials must not be stored in a project file; use PLACEOPS_ROBLOSECURITY and PLACEOPS_API_KEY")
	}
	if p.ExperienceID < 0 {
		return fmt.Errorf("%s must be positive", KeyExperienceID)
	}
	if p.PlaceID < 0 {
		return fmt.Errorf("%s must be positive", KeyPlaceID)
	}
	if _, err := api.ParseVersionType(p.VersionType); err != nil {
		return err
	}
	if p.Timeout != "" {
		if _, err := time.ParseDuration(p.Timeout); err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeyTimeout, p.Timeout, err)
		}
	}
	if p.Endpoints != nil {
		for name, raw := range map[string]string{
			KeyEndpointUniverses: p.Endpoints.Universes,
			KeyEndpointDevelop:   p.Endpoints.Develop,
			KeyEndpointOpenCloud: p.Endpoints.OpenCloud,
			KeyEndpointPublish:   p.Endpoints.Publish,
		} {
			if raw == "" {
				continue
			}
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid %s %q: must be an http(s) URL", name, raw)
			}
		}
	}
	return nil
}

// Settings returns the file's values keyed like the inputs, ready to be
// merged below flags and environment variables
func (p *ProjectFile) Settings() map[string]any {
	settings := map[string]any{}
	if p.ExperienceID != 0 {
		settings[KeyExperienceID] = p.ExperienceID
	}
	if p.PlaceID != 0 {
		settings[KeyPlaceID] = p.PlaceID
	}
	if p.FilePath != "" {
		settings[KeyFilePath] = p.FilePath
	}
	if p.VersionType != "" {
		settings[KeyVersionType] = p.VersionType
	}
	if p.Timeout != "" {
		settings[KeyTimeout] = p.Timeout
	}

	if p.Endpoints != nil {
		endpoints := map[string]any{}
		for key, value := range map[string]string{
			"universes":  p.Endpoints.Universes,
			"develop":    p.Endpoints.Develop,
			"open_cloud": p.Endpoints.OpenCloud,
			"publish":    p.Endpoints.Publish,
		} {
			if value != "" {
				endpoints[key] = value
			}
		}
		if len(endpoints) > 0 {
			settings["endpoints"] = endpoints
		}
	}
	return settings
}

// Save writes the project file in the format its extension names
func (p *ProjectFile) Save(path string) error {
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "config validation failed")
	}

	var buf bytes.Buffer
	switch format := formatOf(path); format {
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return errors.Wrap(err, "failed to marshal config")
		}
		_ = enc.Close()
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return errors.Wrap(err, "failed to marshal config")
		}
	case "json":
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config")
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		return fmt.Errorf("unsupported config format: %s", strings.TrimPrefix(filepath.Ext(path), "."))
	}

	return os.WriteFile(path, buf.Bytes(), 0644) // #nosec G306 - project files are checked in
}
