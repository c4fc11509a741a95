package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Place is the read-only projection of a place returned by GetPlace and ListPlaces
type Place struct {
	ID                  int64  `json:"id" yaml:"id"`
	Name                string `json:"name" yaml:"name"`
	Description         string `json:"description" yaml:"description"`
	MaxPlayerCount      int    `json:"maxPlayerCount" yaml:"maxPlayerCount"`
	AllowCopying        bool   `json:"allowCopying" yaml:"allowCopying"`
	IsRootPlace         bool   `json:"isRootPlace" yaml:"isRootPlace"`
	CurrentSavedVersion int    `json:"currentSavedVersion" yaml:"currentSavedVersion"`
}

// VersionType selects whether an upload is saved as a draft or goes live
type VersionType string

const (
	VersionSaved     VersionType = "Saved"
	VersionPublished VersionType = "Published"
)

// ParseVersionType normalizes s case-insensitively. Empty means Published.
func ParseVersionType(s string) (VersionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "published":
		return VersionPublished, nil
	case "saved":
		return VersionSaved, nil
	default:
		return "", fmt.Errorf("invalid version type %q (use 'Saved' or 'Published')", s)
	}
}

// VersionResponse is the upstream answer to a publish request
type VersionResponse struct {
	// VersionNumber is zero when the platform did not report one
	VersionNumber int64 `json:"versionNumber,omitempty"`

	// Raw is the response payload as received
	Raw json.RawMessage `json:"-"`
}

type createPlaceRequest struct {
	TemplatePlaceID int64 `json:"templatePlaceId"`
}

type createPlaceResponse struct {
	PlaceID int64 `json:"placeId"`
}

type placeSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// placePage is one page of the develop listing endpoint. A null or empty
// NextPageCursor ends the sequence.
type placePage struct {
	PreviousPageCursor string         `json:"previousPageCursor"`
	NextPageCursor     string         `json:"nextPageCursor"`
	Data               []placeSummary `json:"data"`
}
