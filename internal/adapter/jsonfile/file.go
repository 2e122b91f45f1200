// Package jsonfile persists the whole case collection as one JSON document.
//
// The file is read in full at startup and rewritten in full on every save:
//
//	{"cases": [ {...}, {...} ]}
//
// Writes overwrite the file directly; there is no temp-file rename.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/case-intake/internal/domain"
)

// ErrMalformed marks a data file that exists but cannot be decoded into
// a valid case list.
var ErrMalformed = errors.New("malformed case file")

// document is the top-level shape of the data file.
type document struct {
	Cases []domain.Case `json:"cases"`
}

// File reads and writes the case document at a fixed path.
type File struct {
	path string
}

// New returns a File bound to path. The file need not exist yet.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load reads every case from the file in stored order. A missing file
// yields an empty slice and no error.
func (f *File) Load() ([]domain.Case, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Case{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return Decode(data)
}

// Save overwrites the file with cases, creating parent directories as
// needed.
func (f *File) Save(cases []domain.Case) error {
	data, err := Encode(cases)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Encode renders cases as an indented JSON document.
func Encode(cases []domain.Case) ([]byte, error) {
	if cases == nil {
		cases = []domain.Case{}
	}
	data, err := json.MarshalIndent(document{Cases: cases}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cases: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a JSON document into cases. A document without a "cases"
// key holds no cases; a null document or null list is malformed. Each case
// must carry an id, ids must be unique, and both enumerations must hold
// known values.
func Decode(data []byte) ([]domain.Case, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformed)
	}
	raw, ok := doc["cases"]
	if !ok {
		return []domain.Case{}, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: cases is null", ErrMalformed)
	}

	var cases []domain.Case
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	seen := make(map[string]struct{}, len(cases))
	for i, c := range cases {
		if err := c.CheckIntegrity(); err != nil {
			return nil, fmt.Errorf("%w: case %d: %w", ErrMalformed, i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: case %d: duplicate id %s", ErrMalformed, i, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return cases, nil
}
