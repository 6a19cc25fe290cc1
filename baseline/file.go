package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per rule under a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

var fileNameReplacer = strings.NewReplacer("/", ".", "\\", ".", ":", "_", " ", "_")

func (s *FileStore) path(ruleID string) string {
	return filepath.Join(s.dir, fileNameReplacer.Replace(ruleID)+".json")
}

// Load reads the record of ruleID.
func (s *FileStore) Load(_ context.Context, ruleID string) (*Record, error) {
	data, err := os.ReadFile(s.path(ruleID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse baseline file %s: %w", s.path(ruleID), err)
	}
	return &rec, nil
}

// Save writes rec atomically: a temp file in the same directory is written,
// synced and renamed over the target.
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close baseline: %w", err)
	}
	if err := os.Rename(tmpName, s.path(rec.RuleID)); err != nil {
		return fmt.Errorf("rename baseline: %w", err)
	}
	return nil
}
