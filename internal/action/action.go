// Package action dispatches a single lifecycle action against the platform
// and reports its named results.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fastertools/placeops/internal/api"
)

// Name identifies one of the supported lifecycle actions
type Name string

const (
	Create  Name = "create"
	Delete  Name = "delete"
	List    Name = "list"
	Publish Name = "publish"
)

// Valid lists the supported actions in the order they are documented
var Valid = []Name{Create, Delete, List, Publish}

// Output names
const (
	OutputPlaceID       = "place_id"
	OutputPlaces        = "places"
	OutputSuccess       = "success"
	OutputVersionNumber = "version_number"
)

// UnknownActionError reports an action outside the valid set
type UnknownActionError struct {
	Action string
	Valid  []string
}

func newUnknownActionError(s string) *UnknownActionError {
	valid := make([]string, len(Valid))
	for i, n := range Valid {
		valid[i] = string(n)
	}
	return &UnknownActionError{Action: s, Valid: valid}
}

func (e *UnknownActionError) Error() string {
	if len(e.Valid) == 0 {
		return "unknown action: " + e.Action
	}
	quoted := make([]string, len(e.Valid))
	for i, n := range e.Valid {
		quoted[i] = "'" + n + "'"
	}
	return fmt.Sprintf("unknown action: %s. Use %s, or %s",
		e.Action, strings.Join(quoted[:len(quoted)-1], ", "), quoted[len(quoted)-1])
}

// Parse validates an action name. Matching is exact, as the runner passes it.
func Parse(s string) (Name, error) {
	for _, n := range Valid {
		if string(n) == s {
			return n, nil
		}
	}
	return "", newUnknownActionError(s)
}

// PlaceAPI is the part of the platform client the dispatcher drives
type PlaceAPI interface {
	CreatePlace(ctx context.Context, experienceID int64, name string) (int64, error)
	DeletePlace(ctx context.Context, experienceID, placeID int64) error
	ListPlaces(ctx context.Context, experienceID int64) ([]api.Place, error)
	PublishPlace(ctx context.Context, experienceID, placeID int64, path string, versionType api.VersionType) (*api.VersionResponse, error)
}

// Reporter receives the named results and status lines of an action
type Reporter interface {
	SetOutput(name, value string) error
	Info(format string, args ...any)
}

// Request carries the validated inputs of one action
type Request struct {
	Action       Name
	ExperienceID int64
	PlaceID      int64
	PlaceName    string
	FilePath     string
	VersionType  api.VersionType
}

// Run performs req.Action and reports its outputs. Nothing is reported
// for an action that fails.
func Run(ctx context.Context, client PlaceAPI, req Request, out Reporter) error {
	switch req.Action {
	case Create:
		placeID, err := client.CreatePlace(ctx, req.ExperienceID, req.PlaceName)
		if err != nil {
			return err
		}
		if err := out.SetOutput(OutputPlaceID, strconv.FormatInt(placeID, 10)); err != nil {
			return err
		}
		out.Info("Created place: %d", placeID)

	case Delete:
		if err := client.DeletePlace(ctx, req.ExperienceID, req.PlaceID); err != nil {
			return err
		}
		out.Info("Deleted place: %d", req.PlaceID)

	case List:
		places, err := client.ListPlaces(ctx, req.ExperienceID)
		if err != nil {
			return err
		}
		data, err := json.Marshal(places)
		if err != nil {
			return fmt.Errorf("failed to encode places: %w", err)
		}
		if err := out.SetOutput(OutputPlaces, string(data)); err != nil {
			return err
		}
		out.Info("Found %d place(s)", len(places))

	case Publish:
		version, err := client.PublishPlace(ctx, req.ExperienceID, req.PlaceID, req.FilePath, req.VersionType)
		if err != nil {
			return err
		}
		if err := out.SetOutput(OutputSuccess, "true"); err != nil {
			return err
		}
		if version.VersionNumber > 0 {
			if err := out.SetOutput(OutputVersionNumber, strconv.FormatInt(version.VersionNumber, 10)); err != nil {
				return err
			}
			out.Info("Published place %d as version %d", req.PlaceID, version.VersionNumber)
		} else {
			out.Info("Published place %d", req.PlaceID)
		}

	default:
		return newUnknownActionError(string(req.Action))
	}

	return nil
}
