// Package export writes generated outputs to a directory tree instead of a
// single container.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/govgen/internal/archive"
)

// Written lists the files one export produced, relative to its target
// directory, in write order.
type Written struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Unpack writes every entry of arch below dir as
// <root>/<unit>/<category>/<filename>, preceded by <root>/manifest.json
// when a manifest was generated.
func Unpack(arch *archive.Archiver, dir string) (*Written, error) {
	files, err := arch.Files()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return UnpackFiles(files, dir)
}

// UnpackFiles writes already-encoded archive files, such as those returned
// by archive.Read, below dir. Names must be relative and may not leave dir.
func UnpackFiles(files []archive.File, dir string) (*Written, error) {
	w := &Written{Dir: dir, Files: make([]string, 0, len(files))}
	for _, f := range files {
		rel, err := safeRel(f.Name)
		if err != nil {
			return nil, err
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		if err := os.WriteFile(target, f.Data, 0o644); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		w.Files = append(w.Files, rel)
	}
	return w, nil
}

func safeRel(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("export: unsafe entry name %q", name)
	}
	return clean, nil
}

// ManifestJSON renders a run manifest the way it is stored in the archive.
func ManifestJSON(m *archive.RunManifest) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("export: no manifest")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteManifest writes the manifest JSON to path.
func WriteManifest(m *archive.RunManifest, path string) error {
	data, err := ManifestJSON(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
