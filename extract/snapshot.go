// Package extract produces class models for the engine, either from a saved
// snapshot or from Java sources, and watches sources for changes.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/hexguard/classgraph"
)

// SnapshotVersion is the snapshot format written by SaveSnapshot.
const SnapshotVersion = 1

// ErrUnsupportedVersion is returned when a snapshot has an unknown version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Snapshot is the serialised form of a class model.
type Snapshot struct {
	Version int                          `json:"version" yaml:"version"`
	Classes []classgraph.ClassDescriptor `json:"classes" yaml:"classes"`
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadSnapshot reads a snapshot. Files ending in .yaml or .yml are decoded
// as YAML, anything else as JSON.
func LoadSnapshot(path string) ([]classgraph.ClassDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if isYAML(path) {
		err = yaml.Unmarshal(data, &snap)
	} else {
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return snap.Classes, nil
}

// SaveSnapshot writes descriptors to path in the format implied by its
// extension.
func SaveSnapshot(path string, classes []classgraph.ClassDescriptor) error {
	snap := Snapshot{Version: SnapshotVersion, Classes: classes}
	if snap.Classes == nil {
		snap.Classes = []classgraph.ClassDescriptor{}
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(&snap)
	} else {
		data, err = json.MarshalIndent(&snap, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
