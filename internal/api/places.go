package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// templatePlaceID is the baseplate every new place is cloned from
const templatePlaceID = 95206881

// CreatePlace adds a place to the experience and returns its id.
//
// A non-empty name is applied with a follow-up UpdatePlace call. The two
// steps are not transactional: when the rename fails the place stays
// created, and its id is returned together with the error.
func (c *Client) CreatePlace(ctx context.Context, experienceID int64, name string) (int64, error) {
	if name != "" && !c.HasAPIKey() {
		return 0, &ConfigurationError{Operation: "naming a new place"}
	}

	req, err := newJSONRequest(http.MethodPost,
		endpoint(c.endpoints.Universes, fmt.Sprintf("/universes/v1/user/universes/%d/places", experienceID), nil),
		createPlaceRequest{TemplatePlaceID: templatePlaceID})
	if err != nil {
		return 0, err
	}

	var resp createPlaceResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return 0, fmt.Errorf("failed to create place: %w", err)
	}
	if resp.PlaceID == 0 {
		return 0, fmt.Errorf("failed to create place: response did not include a place id")
	}

	if name != "" {
		if err := c.UpdatePlace(ctx, experienceID, resp.PlaceID, map[string]any{"displayName": name}); err != nil {
			return resp.PlaceID, fmt.Errorf("place %d was created but naming it failed: %w", resp.PlaceID, err)
		}
	}

	return resp.PlaceID, nil
}

// UpdatePlace patches the given fields of a place through Open Cloud.
// The update mask lists exactly the supplied field names.
func (c *Client) UpdatePlace(ctx context.Context, experienceID, placeID int64, fields map[string]any) error {
	if !c.HasAPIKey() {
		return &ConfigurationError{Operation: "update place"}
	}
	if len(fields) == 0 {
		return fmt.Errorf("update place: no fields to update")
	}

	mask := make([]string, 0, len(fields))
	for name := range fields {
		mask = append(mask, name)
	}
	sort.Strings(mask)

	req, err := newJSONRequest(http.MethodPatch,
		endpoint(c.endpoints.OpenCloud,
			fmt.Sprintf("/cloud/v2/universes/%d/places/%d", experienceID, placeID),
			url.Values{"updateMask": {strings.Join(mask, ",")}}),
		fields)
	if err != nil {
		return err
	}
	req.openCloud = true

	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to update place %d: %w", placeID, err)
	}
	return nil
}

// DeletePlace removes a place from the experience
func (c *Client) DeletePlace(ctx context.Context, experienceID, placeID int64) error {
	req, err := newJSONRequest(http.MethodPost,
		endpoint(c.endpoints.Universes,
			fmt.Sprintf("/universes/v1/universes/%d/places/%d/remove-place", experienceID, placeID), nil),
		nil)
	if err != nil {
		return err
	}

	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to delete place %d: %w", placeID, err)
	}
	return nil
}

// GetPlace fetches the details of a single place
func (c *Client) GetPlace(ctx context.Context, placeID int64) (*Place, error) {
	req, err := newJSONRequest(http.MethodGet,
		endpoint(c.endpoints.Develop, fmt.Sprintf("/v2/places/%d", placeID), nil), nil)
	if err != nil {
		return nil, err
	}

	var place Place
	if err := c.do(ctx, req, &place); err != nil {
		return nil, fmt.Errorf("failed to get place %d: %w", placeID, err)
	}
	return &place, nil
}

// ListPlaces returns every place of the experience in upstream order.
//
// All pages are walked before returning and each listed item is resolved
// with GetPlace. Any failure aborts the listing without a partial result.
func (c *Client) ListPlaces(ctx context.Context, experienceID int64) ([]Place, error) {
	places := []Place{}
	cursor := ""

	for {
		query := url.Values{}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		req, err := newJSONRequest(http.MethodGet,
			endpoint(c.endpoints.Develop, fmt.Sprintf("/v1/universes/%d/places", experienceID), query), nil)
		if err != nil {
			return nil, err
		}

		var page placePage
		if err := c.do(ctx, req, &page); err != nil {
			return nil, fmt.Errorf("failed to list places: %w", err)
		}

		for _, item := range page.Data {
			place, err := c.GetPlace(ctx, item.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list places: %w", err)
			}
			places = append(places, *place)
		}

		if page.NextPageCursor == "" {
			return places, nil
		}
		cursor = page.NextPageCursor
	}
}

// PublishPlace uploads a place file as a new version.
//
// The API key and the file are checked before any request is made.
// An empty versionType publishes.
func (c *Client) PublishPlace(ctx context.Context, experienceID, placeID int64, path string, versionType VersionType) (*VersionResponse, error) {
	if !c.HasAPIKey() {
		return nil, &ConfigurationError{Operation: "publish place"}
	}

	versionType, err := ParseVersionType(string(versionType))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}

	req := &request{
		method: http.MethodPost,
		url: endpoint(c.endpoints.Publish,
			fmt.Sprintf("/v1/%d/places/%d/versions", experienceID, placeID),
			url.Values{"versionType": {string(versionType)}}),
		body:        data,
		contentType: placeFileContentType(path),
		openCloud:   true,
	}

	var raw json.RawMessage
	if err := c.do(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("failed to publish place %d: %w", placeID, err)
	}

	resp := &VersionResponse{Raw: raw}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, resp); err != nil {
			return nil, fmt.Errorf("failed to decode publish response: %w", err)
		}
	}
	return resp, nil
}

// placeFileContentType picks the upload content type: XML for .rbxlx,
// binary for everything else
func placeFileContentType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".rbxlx") {
		return contentTypeXML
	}
	return contentTypeBinary
}
