package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/seanblong/pdfchat/pkg/models"
)

// ManifestStore defines the methods the batch indexer needs to persist and
// look up extraction manifests.
type ManifestStore interface {
	GetManifest(ctx context.Context, documentID string) (models.Manifest, bool, error)
	PutManifest(ctx context.Context, m models.Manifest) error
}

// Store keeps one JSON manifest per document in a directory.
type Store struct {
	dir string
}

// New creates the output directory if needed and returns a Store writing to it.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("manifest directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(documentID string) (string, error) {
	if documentID == "" || strings.ContainsAny(documentID, `/\`) || documentID == "." || documentID == ".." {
		return "", fmt.Errorf("invalid document id %q", documentID)
	}
	return filepath.Join(s.dir, documentID+".json"), nil
}

// GetManifest returns the stored manifest for documentID. Found is false when
// no manifest has been written yet.
func (s *Store) GetManifest(ctx context.Context, documentID string) (models.Manifest, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Manifest{}, false, err
	}
	p, err := s.path(documentID)
	if err != nil {
		return models.Manifest{}, false, err
	}

	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Manifest{}, false, nil
	}
	if err != nil {
		return models.Manifest{}, false, err
	}

	var m models.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return models.Manifest{}, false, fmt.Errorf("decode manifest %s: %w", p, err)
	}
	return m, true, nil
}

// PutManifest writes m atomically, replacing any previous version.
func (s *Store) PutManifest(ctx context.Context, m models.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(m.DocumentID)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".manifest-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
