package imagestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"example.com/bookfeed/internal/logger"
)

var logg = logger.New()

// ErrEmptyPayload is returned when no image data was supplied.
var ErrEmptyPayload = errors.New("empty image payload")

// ImageStore persists base64-encoded cover images as files under a local
// directory. Records reference them by relative path "images/<name>".
type ImageStore struct {
	dir string
}

// New creates the images directory if needed.
func New(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Save decodes the payload and writes it under a timestamp-based name.
// Returns the relative path to store in the book record.
func (s *ImageStore) Save(payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image: %w", err)
	}

	name := fmt.Sprintf("%d.png", time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		logg.Error("imagestore", "Failed to write image file", err)
		return "", err
	}

	logg.Info("imagestore", "Image stored (file name anonymized)")
	return "images/" + name, nil
}

// Remove deletes a previously saved image by its relative path. Used to
// compensate when the book insert fails after the file write.
func (s *ImageStore) Remove(relPath string) error {
	name := filepath.Base(relPath)
	if name == "." || name == "/" {
		return errors.New("invalid image path")
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		logg.Error("imagestore", "Failed to remove image file", err)
		return err
	}
	return nil
}
