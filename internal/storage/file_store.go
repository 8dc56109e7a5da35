package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agromed-backend/pkg/apperrors"
)

// Content types accepted for uploaded evidence and signed documents.
var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// FileStore persists binary artifacts (photos, signed documents, generated
// PDFs) and hands back stable references the domain records can carry.
type FileStore interface {
	// Store writes content under ref (a relative path). Storing to an
	// existing ref overwrites it, which keeps regeneration idempotent.
	Store(ctx context.Context, ref string, content []byte) error
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) bool
}

// ExtensionFor maps an upload's content type to a file extension, rejecting
// anything outside the pdf/jpeg/png whitelist.
func ExtensionFor(contentType string) (string, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", apperrors.Validation("content type %q is not accepted (pdf, jpeg or png only)", contentType)
	}
	return ext, nil
}

// LocalFileStore keeps artifacts on the local filesystem under a base dir.
type LocalFileStore struct {
	baseDir string
}

func NewLocalFileStore(baseDir string) *LocalFileStore {
	return &LocalFileStore{baseDir: baseDir}
}

func (s *LocalFileStore) fullPath(ref string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	// Keep refs inside the base dir
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", apperrors.Validation("file reference %q escapes the storage root", ref)
	}
	return full, nil
}

func (s *LocalFileStore) Store(ctx context.Context, ref string, content []byte) error {
	full, err := s.fullPath(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directories: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalFileStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	full, err := s.fullPath(ref)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("file", ref)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

func (s *LocalFileStore) Exists(ctx context.Context, ref string) bool {
	full, err := s.fullPath(ref)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(full)
	return statErr == nil
}
