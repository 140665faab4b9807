package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/store"
)

// Error codes reported by commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Input could not be read
	ErrCodeNoInput     = "E003" // No description given
	ErrCodeParseFailed = "E004" // Input is not valid JSON or not a context
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeConfig      = "E006" // Configuration invalid
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeGenerator   = "E008" // Generator could not be built
	ErrCodeUnknownKind = "E009" // Kind has no schema

	ErrCodeRunFailed   = "E101" // A run finished with success=false
	ErrCodeAuditFailed = "E102" // Audit found high-severity issues
)

// LoadError is a load failure with its error code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error { return e.Err }

// readInput reads path, mapping a missing file to ErrCodeNotFound.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", path)}
		}
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: "reading " + path, Err: err}
	}
	return data, nil
}

// contextPath accepts a run directory or a context file.
func contextPath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, store.ContextFile)
	}
	return path
}

// LoadContext reads a saved complete_context.json, given either the file or
// its run directory.
func LoadContext(path string) (*ir.Context, error) {
	path = contextPath(path)
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	c, err := ir.DecodeContext(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: "decoding " + path, Err: err}
	}
	return c, nil
}

// LoadRaw reads a JSON document. Text that is not JSON is returned as a
// string so the normalizer can still look for an embedded batch.
func LoadRaw(path string) (any, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	return v, nil
}

// loadErrorCode extracts the code from a LoadError.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
