package store

import (
	"fmt"
	"sort"
	"sync"
)

// Memory keeps artifacts in memory.
type Memory struct {
	mu    sync.Mutex
	name  string
	files map[string][]byte
}

// NewMemory creates an empty Memory store labelled name.
func NewMemory(name string) *Memory {
	return &Memory{name: name, files: make(map[string][]byte)}
}

// Location returns the label.
func (m *Memory) Location() string { return m.name }

// WriteJSON implements Store.
func (m *Memory) WriteJSON(name string, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return m.WriteFile(name, data)
}

// WriteFile implements Store.
func (m *Memory) WriteFile(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// File returns a stored artifact.
func (m *Memory) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

// Names lists stored artifacts in sorted order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Dir)(nil)
)
