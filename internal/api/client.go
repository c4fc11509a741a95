package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultUniversesURL serves place creation and removal
	DefaultUniversesURL = "https://apis.roblox.com"
	// DefaultDevelopURL serves place detail and listing
	DefaultDevelopURL = "https://develop.roblox.com"
	// DefaultOpenCloudURL serves API-key authenticated place updates
	DefaultOpenCloudURL = "https://apis.roblox.com"
	// DefaultPublishURL serves API-key authenticated version uploads
	DefaultPublishURL = "https://apis.roblox.com/universes"

	sessionCookieName = ".ROBLOSECURITY"
	csrfHeader        = "X-CSRF-TOKEN"
	apiKeyHeader      = "x-api-key"
	requestIDHeader   = "X-Request-Id"

	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
	contentTypeXML    = "application/xml"
)

// Endpoints holds the base URLs of the two upstream host groups.
// Empty fields fall back to the production defaults.
type Endpoints struct {
	Universes string `json:"universes,omitempty" yaml:"universes,omitempty"`
	Develop   string `json:"develop,omitempty" yaml:"develop,omitempty"`
	OpenCloud string `json:"open_cloud,omitempty" yaml:"open_cloud,omitempty"`
	Publish   string `json:"publish,omitempty" yaml:"publish,omitempty"`
}

// DefaultEndpoints returns the production endpoints
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Universes: DefaultUniversesURL,
		Develop:   DefaultDevelopURL,
		OpenCloud: DefaultOpenCloudURL,
		Publish:   DefaultPublishURL,
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Universes == "" {
		e.Universes = d.Universes
	}
	if e.Develop == "" {
		e.Develop = d.Develop
	}
	if e.OpenCloud == "" {
		e.OpenCloud = d.OpenCloud
	}
	if e.Publish == "" {
		e.Publish = d.Publish
	}
	return e
}

// HTTPDoer is the transport the client issues requests through
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client. Every field is optional.
type Options struct {
	// APIKey is the Open Cloud key. Update and publish fail without it.
	APIKey string

	// Endpoints overrides the upstream base URLs
	Endpoints Endpoints

	// HTTPClient replaces the default transport
	HTTPClient HTTPDoer

	// Timeout applies to the default transport only. Zero means no timeout.
	Timeout time.Duration

	// Logger receives debug diagnostics. Secrets are never logged.
	Logger *slog.Logger
}

// Client performs authenticated calls against the place APIs.
//
// A Client is not safe for concurrent use: the CSRF token is learned from
// the first rejected request and cached on the value for its lifetime.
type Client struct {
	cookie    string
	apiKey    string
	endpoints Endpoints
	http      HTTPDoer
	logger    *slog.Logger
	requestID string

	csrfToken string
}

// NewClient creates a client authenticated with the given session cookie value
func NewClient(roblosecurity string, opts Options) (*Client, error) {
	if strings.TrimSpace(roblosecurity) == "" {
		return nil, fmt.Errorf("session credential is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		cookie:    sessionCookieName + "=" + roblosecurity,
		apiKey:    opts.APIKey,
		endpoints: opts.Endpoints.withDefaults(),
		http:      httpClient,
		logger:    logger,
		requestID: uuid.NewString(),
	}, nil
}

// HasAPIKey reports whether API-key gated operations are available
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// RequestID returns the correlation id sent with every request
func (c *Client) RequestID() string {
	return c.requestID
}

// request describes one upstream call. It is immutable so the CSRF
// retry can reissue it byte for byte.
type request struct {
	method      string
	url         string
	body        []byte
	contentType string
	openCloud   bool
}

func newJSONRequest(method, rawURL string, payload any) (*request, error) {
	r := &request{method: method, url: rawURL, contentType: contentTypeJSON}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		r.body = body
	}
	return r, nil
}

// do issues r and decodes a JSON response body into out.
//
// A 403 carrying an X-CSRF-TOKEN header while no token is cached stores the
// token and reissues r once. The retry carries the token, so a second 403
// falls through to UpstreamError instead of looping.
func (c *Client) do(ctx context.Context, r *request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusForbidden && c.csrfToken == "" {
		if token := resp.Header.Get(csrfHeader); token != "" {
			discard(resp)
			c.csrfToken = token
			c.logger.Debug("csrf token acquired, retrying", "method", r.method, "path", pathOf(r.url))

			resp, err = c.send(ctx, r)
			if err != nil {
				return err
			}
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", pathOf(r.url), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{
			Method:     r.method,
			Path:       pathOf(r.url),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if out == nil || len(body) == 0 || !strings.Contains(resp.Header.Get("Content-Type"), contentTypeJSON) {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", pathOf(r.url), err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, r *request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Cookie", c.cookie)
	req.Header.Set("Content-Type", r.contentType)
	req.Header.Set(requestIDHeader, c.requestID)
	if r.openCloud && c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if c.csrfToken != "" {
		req.Header.Set(csrfHeader, c.csrfToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", r.method, pathOf(r.url), err)
	}

	c.logger.Debug("platform request",
		"method", r.method,
		"path", pathOf(r.url),
		"status", resp.StatusCode,
		"csrf", c.csrfToken != "",
	)
	return resp, nil
}

// discard drains and closes a response that is about to be replaced
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// endpoint joins a base URL, a path and optional query parameters
func endpoint(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
