// Package auth stores and resolves the platform credentials: the
// .ROBLOSECURITY session cookie and the optional Open Cloud API key.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Credentials are the secrets a place client is built from
type Credentials struct {
	Roblosecurity string    `json:"roblosecurity"`
	APIKey        string    `json:"api_key,omitempty"`
	SavedAt       time.Time `json:"saved_at"`
}

// HasAPIKey reports whether update and publish are available
func (c *Credentials) HasAPIKey() bool {
	return c != nil && c.APIKey != ""
}

// AuthStatus describes what is stored, without exposing the secrets
type AuthStatus struct {
	LoggedIn  bool
	HasAPIKey bool
	SavedAt   time.Time
	Error     error
}

// Manager handles credential operations
type Manager struct {
	store CredentialStore
	now   func() time.Time
}

// NewManager creates a new credential manager
func NewManager(store CredentialStore) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Login validates and stores credentials
func (m *Manager) Login(roblosecurity, apiKey string) (*Credentials, error) {
	roblosecurity = strings.TrimSpace(roblosecurity)
	if roblosecurity == "" {
		return nil, fmt.Errorf("session cookie is required")
	}

	creds := &Credentials{
		Roblosecurity: roblosecurity,
		APIKey:        strings.TrimSpace(apiKey),
		SavedAt:       m.now().UTC(),
	}
	if err := m.store.Save(creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Logout removes stored credentials
func (m *Manager) Logout() error {
	return m.store.Delete()
}

// Status returns the current authentication status
func (m *Manager) Status() *AuthStatus {
	creds, err := m.store.Load()
	if err != nil || creds == nil {
		if errors.Is(err, ErrNotLoggedIn) {
			err = nil
		}
		return &AuthStatus{LoggedIn: false, Error: err}
	}

	return &AuthStatus{
		LoggedIn:  true,
		HasAPIKey: creds.HasAPIKey(),
		SavedAt:   creds.SavedAt,
	}
}

// Resolve merges explicitly supplied credentials with stored ones.
// Explicit values win field by field; the store is only consulted for
// fields left empty. An unreadable store only matters when no session
// cookie was supplied.
func (m *Manager) Resolve(roblosecurity, apiKey string) (*Credentials, error) {
	creds := &Credentials{Roblosecurity: roblosecurity, APIKey: apiKey}
	if creds.Roblosecurity != "" && creds.APIKey != "" {
		return creds, nil
	}

	stored, err := m.store.Load()
	switch {
	case errors.Is(err, ErrNotLoggedIn):
	case err != nil:
		if creds.Roblosecurity == "" {
			return nil, err
		}
	default:
		if creds.Roblosecurity == "" {
			creds.Roblosecurity = stored.Roblosecurity
		}
		if creds.APIKey == "" {
			creds.APIKey = stored.APIKey
		}
	}

	if creds.Roblosecurity == "" {
		return nil, fmt.Errorf("no session cookie supplied. Pass --roblosecurity, set PLACEOPS_ROBLOSECURITY, or run 'placeops auth login'")
	}
	return creds, nil
}
