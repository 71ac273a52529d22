// Package artifact packages a unit's emitted data for the runtime loader
// and caches it on disk between runs.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"meridian/internal/mangle"
	"meridian/internal/metadata"
	"meridian/internal/objdata"
	"meridian/internal/project"
	"meridian/internal/shape"
	"meridian/internal/template"
)

// SchemaVersion is bumped whenever the encoded layout of Artifact changes.
const SchemaVersion uint16 = 2

// ErrSchemaMismatch is returned when reading an artifact written by a
// different schema version.
var ErrSchemaMismatch = errors.New("artifact schema mismatch")

// Artifact is everything one unit hands to the runtime loader.
type Artifact struct {
	Schema uint16         `msgpack:"schema"`
	Unit   string         `msgpack:"unit"`
	Module string         `msgpack:"module"`
	Triple string         `msgpack:"triple"`
	Hash   project.Digest `msgpack:"hash"`

	Blobs     []*objdata.Blob      `msgpack:"blobs"`
	Templates []*template.Template `msgpack:"templates,omitempty"`
	Records   []RecordSummary      `msgpack:"records"`
	// Undefined lists symbols the loader must resolve from other units or
	// the runtime.
	Undefined []string `msgpack:"undefined,omitempty"`
}

// RecordSummary indexes one record inside Blobs.
type RecordSummary struct {
	Name        string       `msgpack:"name"`
	Kind        string       `msgpack:"kind"`
	Symbol      string       `msgpack:"sym"`
	Descriptor  string       `msgpack:"desc"`
	Generic     bool         `msgpack:"generic,omitempty"`
	InPlaceInit bool         `msgpack:"inplace,omitempty"`
	Words       []shape.Word `msgpack:"words"`
	// Foreign is the class object symbol when the record doubles as one.
	Foreign string `msgpack:"foreign,omitempty"`
	// Super tells the loader how to realize a runtime superclass word.
	Super *template.SuperclassRef `msgpack:"super,omitempty"`
	// MetaclassFixup is the metaclass whose superclass pointer the loader
	// sets to the realized superclass's metaclass.
	MetaclassFixup string `msgpack:"meta_fixup,omitempty"`
}

// Info identifies the unit an artifact belongs to.
type Info struct {
	Unit   string
	Module string
	Triple string
	Hash   project.Digest
}

// Build assembles the artifact for a finished module.
func Build(info Info, mod *objdata.Module, records []*metadata.Record, mg *mangle.Mangler) *Artifact {
	a := &Artifact{
		Schema:    SchemaVersion,
		Unit:      info.Unit,
		Module:    info.Module,
		Triple:    info.Triple,
		Hash:      info.Hash,
		Blobs:     mod.Blobs(),
		Undefined: mod.Undefined(),
	}
	for _, rec := range records {
		sum := RecordSummary{
			Name:        rec.Decl.Name,
			Kind:        rec.Decl.Kind.String(),
			Symbol:      rec.Symbol,
			Generic:     rec.Generic(),
			InPlaceInit: rec.InPlaceInit,
			Words:       rec.Words,
			Descriptor:  mg.Descriptor(rec.Decl),
		}
		if rec.Foreign != nil {
			sum.Foreign = rec.Foreign.Symbol
			if rec.Foreign.SuperPending {
				sum.MetaclassFixup = mangle.ForeignMetaclass(rec.Decl.Name)
			}
		}
		sum.Super = rec.Super
		if rec.Template != nil {
			a.Templates = append(a.Templates, rec.Template)
		}
		a.Records = append(a.Records, sum)
	}
	return a
}

// Encode writes a in msgpack form.
func Encode(w io.Writer, a *Artifact) error {
	return msgpack.NewEncoder(w).Encode(a)
}

// Decode reads an artifact and checks its schema.
func Decode(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, a.Schema, SchemaVersion)
	}
	return &a, nil
}

// WriteFile replaces path atomically.
func WriteFile(path string, a *Artifact) error {
	return writeAtomic(path, func(w io.Writer) error { return Encode(w, a) })
}

// ReadFile decodes the artifact at path.
func ReadFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = write(f); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
