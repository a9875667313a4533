// Package storage persists the calendar as a JSON snapshot file. The
// store calls Save after every successful mutation, so writes are
// atomic (temp file + rename) to keep a crash from truncating the only
// copy of the calendar.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gracecal/internal/model"
)

// JSONFile stores the event collection as an indented JSON array at a
// fixed path.
type JSONFile struct {
	path string
}

// NewJSONFile returns a JSONFile persisting at path. The parent
// directory is created on first save.
func NewJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		return nil, errors.New("storage: data path is empty")
	}
	return &JSONFile{path: path}, nil
}

// Path returns the snapshot location.
func (f *JSONFile) Path() string { return f.path }

// Load reads the snapshot. A missing file is not an error; it means the
// store has never been saved and returns an empty collection, which
// triggers seeding upstream.
func (f *JSONFile) Load() ([]*model.Event, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	var events []*model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", f.path, err)
	}
	return events, nil
}

// Save writes the full collection atomically: marshal, write to a temp
// file in the same directory, fsync, chmod 0600, rename over the
// target.
func (f *JSONFile) Save(events []*model.Event) error {
	if events == nil {
		events = []*model.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage: ensure dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".gracecal-events-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}
