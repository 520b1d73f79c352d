// Package storage reads input documents and writes narration audio through
// any afs-supported location (local paths, file://, mem://, gs://, s3://).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// ErrNotFound is returned when a location holds no object
var ErrNotFound = errors.New("object not found")

// Store saves audio bytes under a base URL
type Store struct {
	fs      afs.Service
	baseURL string
}

// NewStore creates a store rooted at baseURL
func NewStore(baseURL string) (*Store, error) {
	base, err := Normalize(baseURL)
	if err != nil {
		return nil, err
	}
	return &Store{fs: afs.New(), baseURL: strings.TrimRight(base, "/")}, nil
}

// BaseURL returns the location files are written under
func (s *Store) BaseURL() string { return s.baseURL }

// Save writes data to {base}/{name} and returns its URL
func (s *Store) Save(ctx context.Context, data []byte, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	target := url.Join(s.baseURL, name)
	if err := s.fs.Upload(ctx, target, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", target, err)
	}
	return target, nil
}

// Load reads the object at location, which may be a URL or a local path
func (s *Store) Load(ctx context.Context, location string) ([]byte, error) {
	norm, err := Normalize(location)
	if err != nil {
		return nil, err
	}
	exists, err := s.fs.Exists(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", norm, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	data, err := s.fs.DownloadWithURL(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", norm, err)
	}
	return data, nil
}

// Normalize turns a local path into a file:// URL and leaves URLs alone
func Normalize(location string) (string, error) {
	if location == "" {
		return "", errors.New("location is empty")
	}
	norm := location
	if url.Scheme(norm, "") == "" && url.IsRelative(norm) {
		abs, err := filepath.Abs(norm)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path for %s: %w", location, err)
		}
		norm = abs
	}
	if url.Scheme(norm, "") == "" {
		norm = url.ToFileURL(norm)
	}
	return norm, nil
}
