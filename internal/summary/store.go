package summary

import (
	"fmt"
	"os"
	"path/filepath"

	"investment-digest/internal/digest"
)

// Store persists rendered summary documents, one markdown file per video.
type Store struct {
	dir string
}

// NewStore creates the summaries directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &digest.StorageError{Op: "create summaries dir", Err: err}
	}
	return &Store{dir: dir}, nil
}

// Path returns the document path for a video.
func (s *Store) Path(videoID string) string {
	return filepath.Join(s.dir, videoID+".md")
}

// Exists reports whether a document already exists for the video.
func (s *Store) Exists(videoID string) bool {
	_, err := os.Stat(s.Path(videoID))
	return err == nil
}

// Write persists a rendered document atomically. An existing document for the
// same video is overwritten, which makes re-runs after a partial commit safe.
func (s *Store) Write(doc *Document) error {
	path := s.Path(doc.VideoID)
	tmp, err := os.CreateTemp(s.dir, doc.VideoID+".*.tmp")
	if err != nil {
		return &digest.StorageError{Op: "write summary " + doc.VideoID, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(doc.Render()); err != nil {
		tmp.Close()
		return &digest.StorageError{Op: "write summary " + doc.VideoID, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &digest.StorageError{Op: "write summary " + doc.VideoID, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &digest.StorageError{Op: "write summary " + doc.VideoID, Err: err}
	}
	return nil
}

// Read loads and parses a stored document.
func (s *Store) Read(videoID string) (*Document, error) {
	b, err := os.ReadFile(s.Path(videoID))
	if err != nil {
		return nil, &digest.StorageError{Op: "read summary " + videoID, Err: err}
	}
	doc, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", videoID, err)
	}
	return doc, nil
}
