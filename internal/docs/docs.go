package docs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDocs is returned when a unit has no documents on file.
var ErrNoDocs = errors.New("docs: no documents for unit")

// Library serves documents from a flat directory.
type Library struct {
	dir string
}

// NewLibrary creates a Library over dir. The directory does not need
// to exist yet; lookups in a missing directory simply find nothing.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Find returns the paths of every document filed for a unit, sorted
// by filename.
func (l *Library) Find(unit string) ([]string, error) {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return nil, errors.New("docs: unit number is empty")
	}

	matches, err := filepath.Glob(filepath.Join(l.dir, unit+"-*"))
	if err != nil {
		return nil, fmt.Errorf("searching documents for unit %s: %w", unit, err)
	}

	var files []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, ErrNoDocs
	}

	sort.Strings(files)
	return files, nil
}

// List returns the document names (not paths) filed for a unit.
func (l *Library) List(unit string) ([]string, error) {
	paths, err := l.Find(unit)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names, nil
}
