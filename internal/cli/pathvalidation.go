package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fastertools/placeops/internal/api"
)

// placeFileExtensions are the formats the upload endpoint understands
var placeFileExtensions = []string{".rbxl", ".rbxlx"}

// validatePlaceFile checks a user-provided place file before any request is
// made and returns the cleaned path. Failures are *api.InputError.
func validatePlaceFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &api.InputError{Path: path, Err: errors.New("path is empty")}
	}

	cleaned := filepath.Clean(path)
	info, err := os.Stat(cleaned)
	if err != nil {
		return "", &api.InputError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &api.InputError{Path: path, Err: errors.New("is a directory")}
	}
	if info.Size() == 0 {
		return "", &api.InputError{Path: path, Err: errors.New("file is empty")}
	}

	ext := strings.ToLower(filepath.Ext(cleaned))
	known := false
	for _, e := range placeFileExtensions {
		if ext == e {
			known = true
		}
	}
	if !known {
		Warn("%s is not a .rbxl or .rbxlx file; uploading it as binary", filepath.Base(cleaned))
	}

	return cleaned, nil
}
