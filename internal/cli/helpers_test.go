package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/fastertools/placeops/internal/api"
	"github.com/fastertools/placeops/internal/config"
	"github.com/fastertools/placeops/internal/logging"
)

// testEnv replaces every process-level seam the commands touch
type testEnv struct {
	cfg      *config.Config
	opened   []string
	answers  []string
	prompted []string
}

// newTestEnv isolates a test from the terminal, the keyring, the user's
// preferences and any inputs exported by the surrounding shell
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	for _, key := range []string{
		config.KeyAction, config.KeyRoblosecurity, config.KeyAPIKey, config.KeyExperienceID,
		config.KeyPlaceID, config.KeyPlaceName, config.KeyFilePath, config.KeyVersionType, config.KeyTimeout,
	} {
		upper := strings.ToUpper(key)
		t.Setenv("PLACEOPS_"+upper, "")
		t.Setenv("INPUT_"+upper, "")
	}
	t.Setenv("GITHUB_OUTPUT", "")
	t.Setenv("GITHUB_ACTIONS", "")

	keyring.MockInit()

	env := &testEnv{
		cfg: &config.Config{Preferences: config.Preferences{ConfirmDelete: true}},
	}

	prevLoad, prevOpen, prevInteractive, prevAsk := loadUserConfig, openURL, interactive, askOne
	loadUserConfig = func() (*config.Config, error) { return env.cfg, nil }
	openURL = func(url string) error {
		env.opened = append(env.opened, url)
		return nil
	}
	interactive = func() bool { return false }
	askOne = func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		if len(env.answers) == 0 {
			return errors.New("no answer scripted")
		}
		switch prompt := p.(type) {
		case *survey.Input:
			env.prompted = append(env.prompted, prompt.Message)
		case *survey.Password:
			env.prompted = append(env.prompted, prompt.Message)
		}
		*(response.(*string)) = env.answers[0]
		env.answers = env.answers[1:]
		return nil
	}

	t.Cleanup(func() {
		loadUserConfig, openURL, interactive, askOne = prevLoad, prevOpen, prevInteractive, prevAsk
	})
	return env
}

// executeCommand runs the root command with args against a fresh viper
// and returns what it printed to stdout and stderr
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	viper.Reset()
	color.NoColor = true

	var stdout, stderr bytes.Buffer
	prevOut, prevErr := colorOutput, errOutput
	colorOutput, errOutput = &stdout, &stderr
	t.Cleanup(func() {
		colorOutput, errOutput = prevOut, prevErr
		logger = logging.NewDiscard()
		viper.Reset()
	})

	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// fakePlatform serves the place endpoints from memory
type fakePlatform struct {
	mu      sync.Mutex
	nextID  int64
	places  map[int64]api.Place
	order   []int64
	deleted []int64
	masks   []string
	patches []map[string]any
	uploads []string
	cookies []string
	apiKeys []string
}

// newFakePlatform starts the fake and points every endpoint at it
func newFakePlatform(t *testing.T, places ...api.Place) *fakePlatform {
	t.Helper()

	f := &fakePlatform{nextID: 500, places: make(map[int64]api.Place)}
	for _, p := range places {
		f.places[p.ID] = p
		f.order = append(f.order, p.ID)
	}

	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	for _, name := range []string{"UNIVERSES", "DEVELOP", "OPEN_CLOUD", "PUBLISH"} {
		t.Setenv("PLACEOPS_ENDPOINTS_"+name, server.URL)
	}
	return f
}

func (f *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /universes/v1/user/universes/{experience}/places", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nextID++
		id := f.nextID
		f.places[id] = api.Place{ID: id, Name: "Place", MaxPlayerCount: 50}
		f.order = append(f.order, id)
		f.mu.Unlock()
		respond(w, http.StatusOK, map[string]int64{"placeId": id})
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
		f.deleted = append(f.deleted, id)
		respond(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("GET /v1/universes/{experience}/places", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		data := []map[string]any{}
		for _, id := range f.order {
			if p, ok := f.places[id]; ok {
				data = append(data, map[string]any{"id": p.ID, "name": p.Name})
			}
		}
		respond(w, http.StatusOK, map[string]any{"previousPageCursor": nil, "nextPageCursor": nil, "data": data})
	})

	mux.HandleFunc("GET /v2/places/{place}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		id, _ := strconv.ParseInt(r.PathValue("place"), 10, 64)
		f.mu.Lock()
		p, ok := f.places[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "place not found", http.StatusNotFound)
			return
		}
		respond(w, http.StatusOK, p)
	})

	mux.HandleFunc("PATCH /cloud/v2/universes/{experience}/places/{place}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		id, _ := strconv.ParseInt(r.PathValue("place"), 10, 64)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.masks = append(f.masks, r.URL.Query().Get("updateMask"))
		f.patches = append(f.patches, body)
		if p, ok := f.places[id]; ok {
			if name, ok := body["displayName"].(string); ok {
				p.Name = name
			}
			if desc, ok := body["description"].(string); ok {
				p.Description = desc
			}
			f.places[id] = p
		}
		respond(w, http.StatusOK, body)
	})

	mux.HandleFunc("POST /v1/{experience}/places/{place}/versions", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		f.uploads = append(f.uploads, r.URL.Query().Get("versionType"))
		n := len(f.uploads)
		f.mu.Unlock()
		respond(w, http.StatusOK, map[string]int{"versionNumber": n + 2})
	})

	return mux
}

func (f *fakePlatform) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append(f.cookies, r.Header.Get("Cookie"))
	f.apiKeys = append(f.apiKeys, r.Header.Get("x-api-key"))
}

func (f *fakePlatform) has(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.places[id]
	return ok
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON fails the test unless s holds a single JSON document
func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), v), "output: %s", s)
}

// locked copies one of the fake's recordings under its lock
func locked[T any](f *fakePlatform, s *[]T) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), (*s)...)
}
