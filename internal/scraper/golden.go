package scraper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// writeGoldenFiles writes each entry under goldenDir, keyed by its relative path.
func writeGoldenFiles(goldenDir string, files map[string][]byte) error {
	for name, body := range files {
		path := filepath.Join(goldenDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create golden dir: %w", err)
		}
		if err := os.WriteFile(path, body, 0o600); err != nil {
			return fmt.Errorf("failed to write %s golden file: %w", name, err)
		}
	}
	return nil
}

// readGoldenDir loads every file with the given extension in dir, keyed by name without the extension.
// A missing dir yields an empty map.
func readGoldenDir(dir, ext string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return files, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read golden dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read golden file %s: %w", e.Name(), err)
		}
		files[strings.TrimSuffix(e.Name(), ext)] = data
	}
	return files, nil
}
