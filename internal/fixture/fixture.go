// Package fixture loads Things from YAML documents and carries the
// embedded bootstrap schema.
//
// A fixture file lists Things in the tagged wire form:
//
//	comment: seed data
//	things:
//	  - key: /book/dune
//	    type: {key: /type/book}
//	    title: Dune
//	    pages: 412
//	    description: {type: /type/text, value: "..."}
//
// All Things of one file are written in a single change.
package fixture

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/roach88/infobase/internal/codec"
	"github.com/roach88/infobase/internal/store"
)

//go:embed bootstrap.yaml
var bootstrapYAML []byte

// File is a parsed fixture document.
type File struct {
	// Comment, Author and Kind describe the change the load produces.
	Comment string `yaml:"comment,omitempty"`
	Author  string `yaml:"author,omitempty"`
	Kind    string `yaml:"kind,omitempty"`

	// Things holds one wire-form document per Thing; "key" is required.
	Things []map[string]any `yaml:"things"`
}

// Parse reads a fixture document. Unknown top-level fields are rejected.
func Parse(r io.Reader) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", store.ErrValidation, err)
	}
	if err := validateFile(&f); err != nil {
		return nil, fmt.Errorf("%w: invalid fixture: %v", store.ErrValidation, err)
	}
	return &f, nil
}

// validateFile checks that required fields are present.
func validateFile(f *File) error {
	if len(f.Things) == 0 {
		return fmt.Errorf("things list is required and must be non-empty")
	}
	for i, doc := range f.Things {
		key, ok := doc["key"].(string)
		if !ok || key == "" {
			return fmt.Errorf("things[%d]: key is required", i)
		}
	}
	return nil
}

// Request converts f into one write request. Every Thing is decoded with
// the wire codec, so datatype errors surface before anything is written.
func (f *File) Request() (store.WriteRequest, error) {
	req := store.WriteRequest{
		Comment: f.Comment,
		Author:  f.Author,
		Kind:    f.Kind,
	}
	for i, doc := range f.Things {
		key := doc["key"].(string)
		t, err := codec.Decode(nil, key, doc)
		if err != nil {
			return store.WriteRequest{}, fmt.Errorf("things[%d] %s: %w", i, key, err)
		}
		req.Mutations = append(req.Mutations, store.Mutation{Key: key, Thing: t})
	}
	return req, nil
}

// Load parses r and writes its Things in one change.
func Load(ctx context.Context, w store.Writer, r io.Reader) (*store.Change, error) {
	f, err := Parse(r)
	if err != nil {
		return nil, err
	}
	req, err := f.Request()
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	change, err := w.Write(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return change, nil
}

// LoadFile loads the fixture at path.
func LoadFile(ctx context.Context, w store.Writer, path string) (*store.Change, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Load(ctx, w, bytes.NewReader(data))
}

// LoadGlob loads every file matching pattern ("seed/**/*.yaml"), in
// lexical order, one change per file. Loading stops at the first error;
// files already loaded stay written.
func LoadGlob(ctx context.Context, w store.Writer, pattern string) ([]*store.Change, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: bad fixture pattern %q: %v", store.ErrValidation, pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no fixture files match %q: %w", pattern, store.ErrNotFound)
	}
	slices.Sort(paths)

	changes := make([]*store.Change, 0, len(paths))
	for _, path := range paths {
		change, err := LoadFile(ctx, w, path)
		if err != nil {
			return changes, fmt.Errorf("%s: %w", path, err)
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// Bootstrap writes the starter schema: the type system, the primitive
// types, /type/author and /type/book with their properties, and the
// sample objects /author/test and /book/test.
func Bootstrap(ctx context.Context, w store.Writer) (*store.Change, error) {
	return Load(ctx, w, bytes.NewReader(bootstrapYAML))
}
