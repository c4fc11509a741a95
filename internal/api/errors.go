package api

import (
	"errors"
	"fmt"
	"io/fs"
)

// UpstreamError is a non-2xx platform response, returned after the single
// CSRF retry has been spent
type UpstreamError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("platform API error (%d): %s", e.StatusCode, e.Body)
}

// ConfigurationError reports an operation that needs the Open Cloud API key
// invoked on a client constructed without one
type ConfigurationError struct {
	Operation string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s requires an Open Cloud API key", e.Operation)
}

// InputError reports a place file that does not exist or cannot be read
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("place file not found: %s", e.Path)
	}
	return fmt.Sprintf("cannot read place file %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err wraps an UpstreamError with the given status
func IsStatus(err error, status int) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == status
}
