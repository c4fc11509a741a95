package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/action"
	"github.com/fastertools/placeops/internal/api"
)

// Input keys. Each is readable from a flag of the same name (dashes for
// underscores), PLACEOPS_<KEY>, the runner's INPUT_<KEY>, or the config file.
const (
	KeyAction        = "action"
	KeyRoblosecurity = "roblosecurity"
	KeyAPIKey        = "api_key"
	KeyExperienceID  = "experience_id"
	KeyPlaceID       = "place_id"
	KeyPlaceName     = "place_name"
	KeyFilePath      = "file_path"
	KeyVersionType   = "version_type"
	KeyTimeout       = "timeout"

	KeyEndpointUniverses = "endpoints.universes"
	KeyEndpointDevelop   = "endpoints.develop"
	KeyEndpointOpenCloud = "endpoints.open_cloud"
	KeyEndpointPublish   = "endpoints.publish"
)

// EnvPrefix prefixes the CLI's own environment variables
const EnvPrefix = "PLACEOPS"

// inputKeys are bound to both environment spellings
var inputKeys = []string{
	KeyAction,
	KeyRoblosecurity,
	KeyAPIKey,
	KeyExperienceID,
	KeyPlaceID,
	KeyPlaceName,
	KeyFilePath,
	KeyVersionType,
	KeyTimeout,
}

// Inputs are the resolved inputs of one invocation
type Inputs struct {
	Action        string
	Roblosecurity string
	APIKey        string
	ExperienceID  int64
	PlaceID       int64
	PlaceName     string
	FilePath      string
	VersionType   api.VersionType
	Timeout       time.Duration
	Endpoints     api.Endpoints

	// malformed holds parse errors by input key
	malformed map[string]error
}

// BindEnv makes every input key readable from PLACEOPS_<KEY> and, as the
// Actions runner exports them, INPUT_<KEY>
func BindEnv(v *viper.Viper) error {
	for _, key := range inputKeys {
		upper := strings.ToUpper(key)
		if err := v.BindEnv(key, EnvPrefix+"_"+upper, "INPUT_"+upper); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// FlagKey maps a flag name to its input key
func FlagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// LoadInputs reads every input from v. Malformed values are recorded
// rather than returned, so the action name can be checked first; see
// Validate and Err.
func LoadInputs(v *viper.Viper) *Inputs {
	in := &Inputs{
		Action:        strings.TrimSpace(v.GetString(KeyAction)),
		Roblosecurity: strings.TrimSpace(v.GetString(KeyRoblosecurity)),
		APIKey:        strings.TrimSpace(v.GetString(KeyAPIKey)),
		PlaceName:     v.GetString(KeyPlaceName),
		FilePath:      strings.TrimSpace(v.GetString(KeyFilePath)),
		Endpoints: api.Endpoints{
			Universes: v.GetString(KeyEndpointUniverses),
			Develop:   v.GetString(KeyEndpointDevelop),
			OpenCloud: v.GetString(KeyEndpointOpenCloud),
			Publish:   v.GetString(KeyEndpointPublish),
		},
	}

	var err error
	if in.ExperienceID, err = parseID(KeyExperienceID, v.GetString(KeyExperienceID)); err != nil {
		in.invalid(KeyExperienceID, err)
	}
	if in.PlaceID, err = parseID(KeyPlaceID, v.GetString(KeyPlaceID)); err != nil {
		in.invalid(KeyPlaceID, err)
	}
	if in.VersionType, err = api.ParseVersionType(v.GetString(KeyVersionType)); err != nil {
		in.invalid(KeyVersionType, err)
	}
	if raw := strings.TrimSpace(v.GetString(KeyTimeout)); raw != "" {
		if in.Timeout, err = time.ParseDuration(raw); err != nil {
			in.invalid(KeyTimeout, fmt.Errorf("invalid %s %q: %w", KeyTimeout, raw, err))
		}
	}

	return in
}

func (in *Inputs) invalid(key string, err error) {
	if in.malformed == nil {
		in.malformed = make(map[string]error)
	}
	in.malformed[key] = err
}

// Err returns the parse error of the first malformed value among keys
func (in *Inputs) Err(keys ...string) error {
	for _, key := range keys {
		if err := in.malformed[key]; err != nil {
			return err
		}
	}
	return nil
}

// parseID parses a numeric platform id. Empty means unset.
func parseID(key, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return id, nil
}

// Validate checks the action name, then the values and inputs it uses.
// Malformed inputs the action does not use are ignored.
func (in *Inputs) Validate() (action.Name, error) {
	name, err := action.Parse(in.Action)
	if err != nil {
		return "", err
	}

	used := []string{KeyExperienceID, KeyTimeout}
	switch name {
	case action.Delete:
		used = append(used, KeyPlaceID)
	case action.Publish:
		used = append(used, KeyPlaceID, KeyVersionType)
	}
	if err := in.Err(used...); err != nil {
		return "", err
	}

	if in.ExperienceID == 0 {
		return "", fmt.Errorf("input required and not supplied: %s", KeyExperienceID)
	}

	switch name {
	case action.Delete:
		if in.PlaceID == 0 {
			return "", fmt.Errorf("input required and not supplied: %s", KeyPlaceID)
		}
	case action.Publish:
		if in.PlaceID == 0 {
			return "", fmt.Errorf("input required and not supplied: %s", KeyPlaceID)
		}
		if in.FilePath == "" {
			return "", fmt.Errorf("input required and not supplied: %s", KeyFilePath)
		}
	}

	return name, nil
}

// Request converts validated inputs into an action request
func (in *Inputs) Request() (action.Request, error) {
	name, err := in.Validate()
	if err != nil {
		return action.Request{}, err
	}
	return action.Request{
		Action:       name,
		ExperienceID: in.ExperienceID,
		PlaceID:      in.PlaceID,
		PlaceName:    in.PlaceName,
		FilePath:     in.FilePath,
		VersionType:  in.VersionType,
	}, nil
}

// Secrets returns the credential values that must never be printed
func (in *Inputs) Secrets() []string {
	var secrets []string
	for _, s := range []string{in.Roblosecurity, in.APIKey} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}
