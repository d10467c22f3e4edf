package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is a finished recording on local storage.
type Artifact struct {
	Locator         string `json:"locator"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Extension returns the lower-cased file extension without the dot.
func (a Artifact) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(a.Locator), "."))
}

// Remove deletes the backing file. A missing file is not an error.
func (a Artifact) Remove() error {
	if a.Locator == "" {
		return nil
	}
	if err := os.Remove(a.Locator); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
