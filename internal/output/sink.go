// Package output writes the generated JSON artifacts.
package output

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Sink writes JSON artifacts under a root directory. In dry-run mode it
// logs what would be written and touches nothing on disk.
type Sink struct {
	root   string
	dryRun bool
}

// NewSink creates a sink rooted at dir.
func NewSink(dir string, dryRun bool) *Sink {
	return &Sink{root: dir, dryRun: dryRun}
}

// Root returns the output root directory.
func (s *Sink) Root() string {
	return s.root
}

// DryRun reports whether the sink is in dry-run mode.
func (s *Sink) DryRun() bool {
	return s.dryRun
}

// WriteJSON marshals v with two-space indentation to relPath under the
// sink root, creating parent directories as needed.
func (s *Sink) WriteJSON(relPath string, v any) error {
	if s.dryRun {
		log.Printf("[dry-run] would write %s", relPath)
		return nil
	}

	path := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", relPath, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", relPath, err)
	}
	return nil
}
