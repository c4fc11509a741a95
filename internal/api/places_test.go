package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform is an in-memory upstream serving every place endpoint
type fakePlatform struct {
	mu       sync.Mutex
	nextID   int64
	places   map[int64]*Place
	order    []int64
	pageSize int
	versions map[int64]int64
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:   1000,
		places:   make(map[int64]*Place),
		pageSize: 2,
		versions: make(map[int64]int64),
	}
}

func (f *fakePlatform) add(p Place) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.places[p.ID] = &cp
	f.order = append(f.order, p.ID)
}

func (f *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /universes/v1/user/universes/{experience}/places", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nextID++
		id := f.nextID
		f.places[id] = &Place{ID: id, Name: "Place", MaxPlayerCount: 50}
		f.order = append(f.order, id)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]int64{"placeId": id})
	})

	mux.HandleFunc("POST /universes/v1/universes/{experience}/places/{place}/remove-place", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("place"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.places[id]; !ok {
			http.Error(w, "place not found", http.StatusNotFound)
			return
		}
		delete(f.places, id)
		for i, v := range f.order {
			if v == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /v2/places/{place}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("place"), 10, 64)
		f.mu.Lock()
		p, ok := f.places[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "place not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	mux.HandleFunc("GET /v1/universes/{experience}/places", func(w http.ResponseWriter, r *http.Request) {
		start := 0
		if c := r.URL.Query().Get("cursor"); c != "" {
			start, _ = strconv.Atoi(c)
		}
		f.mu.Lock()
		defer f.mu.Unlock()

		end := min(start+f.pageSize, len(f.order))
		page := map[string]any{"previousPageCursor": nil, "nextPageCursor": nil, "data": []placeSummary{}}
		items := []placeSummary{}
		for _, id := range f.order[start:end] {
			items = append(items, placeSummary{ID: id, Name: f.places[id].Name})
		}
		page["data"] = items
		if end < len(f.order) {
			page["nextPageCursor"] = strconv.Itoa(end)
		}
		writeJSON(w, http.StatusOK, page)
	})

	mux.HandleFunc("PATCH /cloud/v2/universes/{experience}/places/{place}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("place"), 10, 64)
		var fields map[string]any
		_ = json.NewDecoder(r.Body).Decode(&fields)
		f.mu.Lock()
		defer f.mu.Unlock()
		p, ok := f.places[id]
		if !ok {
			http.Error(w, "place not found", http.StatusNotFound)
			return
		}
		if name, ok := fields["displayName"].(string); ok {
			p.Name = name
		}
		if desc, ok := fields["description"].(string); ok {
			p.Description = desc
		}
		writeJSON(w, http.StatusOK, fields)
	})

	mux.HandleFunc("POST /v1/{experience}/places/{place}/versions", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("place"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.versions[id]++
		if p, ok := f.places[id]; ok {
			p.CurrentSavedVersion = int(f.versions[id])
		}
		writeJSON(w, http.StatusOK, map[string]int64{"versionNumber": f.versions[id]})
	})

	return mux
}

func TestListPlaces_WalksEveryPage(t *testing.T) {
	// Three pages of two items: "" -> A -> B -> end
	pages := map[string]placePage{
		"":  {NextPageCursor: "A", Data: []placeSummary{{ID: 1}, {ID: 2}}},
		"A": {NextPageCursor: "B", Data: []placeSummary{{ID: 3}, {ID: 4}}},
		"B": {Data: []placeSummary{{ID: 5}, {ID: 6}}},
	}
	details := func(id int64) Place {
		return Place{
			ID:                  id,
			Name:                fmt.Sprintf("Place %d", id),
			Description:         fmt.Sprintf("desc %d", id),
			MaxPlayerCount:      int(id * 10),
			AllowCopying:        id%2 == 0,
			IsRootPlace:         id == 1,
			CurrentSavedVersion: int(id + 100),
		}
	}

	var detailCalls int
	client, rec := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/universes/42/places":
			page, ok := pages[r.URL.Query().Get("cursor")]
			assert.True(t, ok, "unexpected cursor %q", r.URL.Query().Get("cursor"))
			writeJSON(w, http.StatusOK, page)
		default:
			var id int64
			_, err := fmt.Sscanf(r.URL.Path, "/v2/places/%d", &id)
			assert.NoError(t, err)
			detailCalls++
			writeJSON(w, http.StatusOK, details(id))
		}
	}))

	places, err := client.ListPlaces(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, places, 6)
	for i, p := range places {
		assert.Equal(t, details(int64(i+1)), p)
	}
	assert.Equal(t, 6, detailCalls, "one detail fetch per listed item")

	var cursors []string
	for _, r := range rec.all() {
		if r.Path == "/v1/universes/42/places" {
			q, _ := url.ParseQuery(r.Query)
			cursors = append(cursors, q.Get("cursor"))
		}
	}
	assert.Equal(t, []string{"", "A", "B"}, cursors)
}

func TestListPlaces_NullCursorEndsListing(t *testing.T) {
	client, _ := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/universes/1/places" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"previousPageCursor":null,"nextPageCursor":null,"data":[]}`)
			return
		}
		t.Errorf("unexpected request %s", r.URL.Path)
	}))

	places, err := client.ListPlaces(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)
}

func TestListPlaces_FailureReturnsNoPartialResult(t *testing.T) {
	client, _ := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/universes/7/places" && r.URL.Query().Get("cursor") == "":
			writeJSON(w, http.StatusOK, placePage{NextPageCursor: "next", Data: []placeSummary{{ID: 1}}})
		case r.URL.Path == "/v1/universes/7/places":
			http.Error(w, "internal", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, Place{ID: 1})
		}
	}))

	places, err := client.ListPlaces(context.Background(), 7)
	assert.Nil(t, places)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
}

func TestCreatePlace(t *testing.T) {
	platform := newFakePlatform()
	client, rec := newTestClient(t, "", platform.handler())

	id, err := client.CreatePlace(context.Background(), 77, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), id)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/universes/v1/user/universes/77/places", reqs[0].Path)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.JSONEq(t, `{"templatePlaceId":95206881}`, string(reqs[0].Body))
}

func TestCreatePlace_WithName(t *testing.T) {
	platform := newFakePlatform()
	client, rec := newTestClient(t, "open-cloud-key", platform.handler())

	id, err := client.CreatePlace(context.Background(), 77, "Lobby")
	require.NoError(t, err)

	reqs := rec.all()
	require.Len(t, reqs, 2)
	update := reqs[1]
	assert.Equal(t, http.MethodPatch, update.Method)
	assert.Equal(t, fmt.Sprintf("/cloud/v2/universes/77/places/%d", id), update.Path)
	assert.Equal(t, "open-cloud-key", update.Header.Get("x-api-key"))
	q, _ := url.ParseQuery(update.Query)
	assert.Equal(t, "displayName", q.Get("updateMask"))
	assert.JSONEq(t, `{"displayName":"Lobby"}`, string(update.Body))

	place, err := client.GetPlace(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Lobby", place.Name)
}

func TestCreatePlace_NameUpdateFailurePropagates(t *testing.T) {
	var deletes int
	client, _ := newTestClient(t, "key", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.URL.Path != "/universes/v1/user/universes/5/places" {
				deletes++
			}
			writeJSON(w, http.StatusOK, map[string]int64{"placeId": 900})
		case http.MethodPatch:
			http.Error(w, "bad display name", http.StatusBadRequest)
		}
	}))

	id, err := client.CreatePlace(context.Background(), 5, "bad\x00name")
	require.Error(t, err)
	assert.Equal(t, int64(900), id, "created id is still reported")
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "place 900 was created")
	assert.Zero(t, deletes, "no rollback")
}

func TestCreatePlace_NameWithoutAPIKey(t *testing.T) {
	client, rec := newTestClient(t, "", newFakePlatform().handler())

	_, err := client.CreatePlace(context.Background(), 5, "Lobby")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, rec.all())
}

func TestCreatePlace_MissingPlaceID(t *testing.T) {
	client, _ := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	_, err := client.CreatePlace(context.Background(), 5, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not include a place id")
}

func TestUpdatePlace(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		client, rec := newTestClient(t, "", newFakePlatform().handler())
		err := client.UpdatePlace(context.Background(), 1, 2, map[string]any{"displayName": "x"})
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "update place", cfgErr.Operation)
		assert.Empty(t, rec.all())
	})

	t.Run("rejects empty field set", func(t *testing.T) {
		client, rec := newTestClient(t, "key", newFakePlatform().handler())
		err := client.UpdatePlace(context.Background(), 1, 2, nil)
		assert.Error(t, err)
		assert.Empty(t, rec.all())
	})

	t.Run("mask lists exactly the supplied fields", func(t *testing.T) {
		platform := newFakePlatform()
		platform.add(Place{ID: 2, Name: "old"})
		client, rec := newTestClient(t, "key", platform.handler())

		err := client.UpdatePlace(context.Background(), 1, 2, map[string]any{
			"displayName": "new",
			"description": "about",
		})
		require.NoError(t, err)

		reqs := rec.all()
		require.Len(t, reqs, 1)
		q, _ := url.ParseQuery(reqs[0].Query)
		assert.Equal(t, "description,displayName", q.Get("updateMask"))
		assert.JSONEq(t, `{"displayName":"new","description":"about"}`, string(reqs[0].Body))
	})
}

func TestDeletePlace(t *testing.T) {
	platform := newFakePlatform()
	platform.add(Place{ID: 12})
	client, rec := newTestClient(t, "", platform.handler())

	require.NoError(t, client.DeletePlace(context.Background(), 3, 12))

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/universes/v1/universes/3/places/12/remove-place", reqs[0].Path)

	err := client.DeletePlace(context.Background(), 3, 12)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func writePlaceFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestPublishPlace(t *testing.T) {
	payload := []byte{0x3c, 0x72, 0x6f, 0x62, 0x6c, 0x6f, 0x78, 0x21, 0x89, 0xff, 0x0d, 0x0a}

	t.Run("uploads the raw file", func(t *testing.T) {
		platform := newFakePlatform()
		platform.add(Place{ID: 8})
		client, rec := newTestClient(t, "key", platform.handler())

		resp, err := client.PublishPlace(context.Background(), 4, 8, writePlaceFile(t, "game.rbxl", payload), VersionSaved)
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.VersionNumber)
		assert.JSONEq(t, `{"versionNumber":1}`, string(resp.Raw))

		reqs := rec.all()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPost, reqs[0].Method)
		assert.Equal(t, "/v1/4/places/8/versions", reqs[0].Path)
		assert.Equal(t, "versionType=Saved", reqs[0].Query)
		assert.Equal(t, "application/octet-stream", reqs[0].Header.Get("Content-Type"))
		assert.Equal(t, "key", reqs[0].Header.Get("x-api-key"))
		assert.Equal(t, payload, reqs[0].Body)
	})

	t.Run("defaults to published", func(t *testing.T) {
		client, rec := newTestClient(t, "key", newFakePlatform().handler())

		resp, err := client.PublishPlace(context.Background(), 4, 8, writePlaceFile(t, "game.rbxlx", []byte("<roblox/>")), "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.VersionNumber)

		reqs := rec.all()
		require.Len(t, reqs, 1)
		assert.Equal(t, "versionType=Published", reqs[0].Query)
		assert.Equal(t, "application/xml", reqs[0].Header.Get("Content-Type"))
	})

	t.Run("missing api key", func(t *testing.T) {
		client, rec := newTestClient(t, "", newFakePlatform().handler())

		_, err := client.PublishPlace(context.Background(), 4, 8, writePlaceFile(t, "game.rbxl", payload), VersionPublished)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Empty(t, rec.all())
	})

	t.Run("missing file", func(t *testing.T) {
		client, rec := newTestClient(t, "key", newFakePlatform().handler())

		missing := filepath.Join(t.TempDir(), "nope.rbxl")
		_, err := client.PublishPlace(context.Background(), 4, 8, missing, VersionPublished)
		var inputErr *InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, missing, inputErr.Path)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "place file not found")
		assert.Empty(t, rec.all())
	})

	t.Run("invalid version type", func(t *testing.T) {
		client, rec := newTestClient(t, "key", newFakePlatform().handler())

		_, err := client.PublishPlace(context.Background(), 4, 8, writePlaceFile(t, "game.rbxl", payload), "Draft")
		assert.Error(t, err)
		assert.Empty(t, rec.all())
	})

	t.Run("upstream rejection", func(t *testing.T) {
		client, _ := newTestClient(t, "key", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		}))

		_, err := client.PublishPlace(context.Background(), 4, 8, writePlaceFile(t, "game.rbxl", payload), VersionPublished)
		assert.True(t, IsStatus(err, http.StatusRequestEntityTooLarge))
	})
}

func TestCreateThenList_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t, "", newFakePlatform().handler())
	ctx := context.Background()

	id, err := client.CreatePlace(ctx, 31, "")
	require.NoError(t, err)

	places, err := client.ListPlaces(ctx, 31)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, id, places[0].ID)

	require.NoError(t, client.DeletePlace(ctx, 31, id))
	places, err = client.ListPlaces(ctx, 31)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestParseVersionType(t *testing.T) {
	tests := []struct {
		in      string
		want    VersionType
		wantErr bool
	}{
		{in: "", want: VersionPublished},
		{in: "Published", want: VersionPublished},
		{in: "published", want: VersionPublished},
		{in: " SAVED ", want: VersionSaved},
		{in: "Saved", want: VersionSaved},
		{in: "draft", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersionType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
