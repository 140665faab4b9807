package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir writes artifacts into one directory.
type Dir struct {
	path string
}

// Create makes a new run directory under base and returns it. base is
// created as needed; the run directory itself must not exist yet.
func Create(base, name string) (*Dir, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(base, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunExists, path)
		}
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Open uses an existing directory.
func Open(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening run directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening run directory: %s is not a directory", path)
	}
	return &Dir{path: path}, nil
}

// Location returns the directory path.
func (d *Dir) Location() string { return d.path }

// WriteJSON implements Store.
func (d *Dir) WriteJSON(name string, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return d.WriteFile(name, data)
}

// WriteFile implements Store. The file is written to a temporary name and
// renamed into place.
func (d *Dir) WriteFile(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	final := filepath.Join(d.path, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ReadFile returns a stored artifact.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(d.path, name))
}
