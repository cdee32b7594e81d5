package repository

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/models"
)

// FileStore persists a station list as a JSON document.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the output file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether the output file is present.
func (s *FileStore) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.Storage, "repository", err, "cannot stat %s", s.path)
}

// Load reads a previously written station list.
func (s *FileStore) Load() (*models.StationList, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "repository", err, "cannot read %s", s.path)
	}

	var list models.StationList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "repository", err, "%s is not a station list", s.path)
	}
	return &list, nil
}

// Save replaces the output file. The list is written to a temporary file
// in the same directory and renamed over the target, so a failed save
// leaves the previous file untouched.
func (s *FileStore) Save(list *models.StationList) error {
	out := *list
	if out.Stations == nil {
		out.Stations = []models.Station{}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "repository", err, "cannot encode station list")
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), ".stations-*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.Storage, "repository", err, "cannot create temporary file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return apperr.Wrap(apperr.Storage, "repository", err, "cannot write %s", tmpPath)
	}
	if err := tmpFile.Close(); err != nil {
		return apperr.Wrap(apperr.Storage, "repository", err, "cannot write %s", tmpPath)
	}
	// CreateTemp uses 0600; the output is served to browsers.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return apperr.Wrap(apperr.Storage, "repository", err, "cannot chmod %s", tmpPath)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return apperr.Wrap(apperr.Storage, "repository", err, "cannot replace %s", s.path)
	}

	success = true
	return nil
}
