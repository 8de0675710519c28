// Package ledgerfile persists a punctuation ledger between the preserve and
// restore steps when they run as separate processes.
package ledgerfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/go-phonepunct/internal/punctuation"
	"github.com/example/go-phonepunct/internal/yamlutil"
)

// Version is the current file format version.
const Version = 1

// ErrUnsupportedVersion is returned for files written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported ledger file version")

// File is the on-disk form of a ledger.
type File struct {
	Version int                `json:"version" yaml:"version"`
	Marks   string             `json:"marks" yaml:"marks"` // policy that produced the ledger
	Ledger  punctuation.Ledger `json:"ledger" yaml:"ledger"`
}

// Write stores f at path. Files ending in .json are written as JSON, any
// other extension as YAML.
func Write(path string, f File) error {
	if f.Version == 0 {
		f.Version = Version
	}

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(f, "", "  ")
	} else {
		data, err = yamlutil.Marshal(f)
	}
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write ledger %s: %w", path, err)
	}
	return nil
}

// Read loads and validates the ledger file at path.
func Read(path string) (File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an explicit user argument.
	if err != nil {
		return File{}, fmt.Errorf("read ledger %s: %w", path, err)
	}

	var f File
	if isJSON(path) {
		err = json.Unmarshal(data, &f)
	} else {
		err = yamlutil.UnmarshalStrict(data, &f)
	}
	if err != nil {
		return File{}, fmt.Errorf("decode ledger %s: %w", path, err)
	}

	if f.Version > Version {
		return File{}, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, f.Version, Version)
	}
	if err := f.Ledger.Validate(); err != nil {
		return File{}, fmt.Errorf("ledger %s: %w", path, err)
	}
	return f, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
