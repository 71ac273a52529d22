package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"fortio.org/safecast"

	"meridian/internal/source"
)

// Manifest is a decoded meridian.toml.
type Manifest struct {
	Unit       UnitTable       `toml:"unit"`
	Types      []TypeEntry     `toml:"types"`
	Categories []CategoryEntry `toml:"categories"`
	Protocols  []ProtocolEntry `toml:"protocols"`
}

// UnitTable is the [unit] section.
type UnitTable struct {
	Name           string   `toml:"name"`
	Module         string   `toml:"module"`
	Target         string   `toml:"target"`
	ForeignInterop bool     `toml:"foreign_interop"`
	Imports        []string `toml:"imports"`
}

type GenericEntry struct {
	Name     string   `toml:"name"`
	Requires []string `toml:"requires"`
}

// TypeEntry declares one struct, enum or class.
type TypeEntry struct {
	Name       string         `toml:"name"`
	Kind       string         `toml:"kind"`
	Superclass string         `toml:"superclass"`
	Resilient  bool           `toml:"resilient"`
	Foreign    bool           `toml:"foreign"`
	Protocols  []string       `toml:"protocols"`
	Generics   []GenericEntry `toml:"generics"`
	Fields     []FieldEntry   `toml:"fields"`
	Methods    []MethodEntry  `toml:"methods"`
	Cases      []CaseEntry    `toml:"cases"`
}

type FieldEntry struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"`
	Computed bool   `toml:"computed"`
	Exposed  bool   `toml:"exposed"`
	Readonly bool   `toml:"readonly"`
}

// MethodEntry is a method; Params holds one list per curried level after
// the implicit self.
type MethodEntry struct {
	Name      string     `toml:"name"`
	Params    [][]string `toml:"params"`
	Result    string     `toml:"result"`
	Overrides string     `toml:"overrides"`
	Static    bool       `toml:"static"`
	Final     bool       `toml:"final"`
	Exposed   bool       `toml:"exposed"`
	Optional  bool       `toml:"optional"`
	Selector  string     `toml:"selector"`
}

type CaseEntry struct {
	Name    string `toml:"name"`
	Payload string `toml:"payload"`
}

type CategoryEntry struct {
	Class     string        `toml:"class"`
	Unit      string        `toml:"unit"`
	Protocols []string      `toml:"protocols"`
	Methods   []MethodEntry `toml:"methods"`
	Fields    []FieldEntry  `toml:"fields"`
}

type ProtocolEntry struct {
	Name     string        `toml:"name"`
	Inherits []string      `toml:"inherits"`
	Methods  []MethodEntry `toml:"methods"`
	Fields   []FieldEntry  `toml:"fields"`
}

// ManifestError is a decoding failure positioned in the manifest file.
type ManifestError struct {
	Path string
	Span source.Span
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ErrUnitSectionMissing indicates a manifest without a [unit] table.
var ErrUnitSectionMissing = errors.New("missing [unit]")

// DecodeManifest decodes the content of f. Unknown keys are returned
// separately so the caller can report them without failing the load.
func DecodeManifest(f *source.File) (*Manifest, []string, error) {
	var m Manifest
	meta, err := toml.Decode(string(f.Content), &m)
	if err != nil {
		span := source.Span{File: f.ID}
		var perr toml.ParseError
		if errors.As(err, &perr) {
			span = lineSpan(f, perr.Position.Line)
			err = errors.New(perr.Message)
		}
		return nil, nil, &ManifestError{Path: f.Path, Span: span, Err: fmt.Errorf("failed to parse TOML: %w", err)}
	}
	if !meta.IsDefined("unit") {
		return nil, nil, &ManifestError{Path: f.Path, Span: lineSpan(f, 1), Err: ErrUnitSectionMissing}
	}
	m.Unit.Name = strings.TrimSpace(m.Unit.Name)
	if m.Unit.Name == "" {
		return nil, nil, &ManifestError{Path: f.Path, Span: lineSpan(f, 1), Err: errors.New("missing [unit].name")}
	}
	if m.Unit.Module == "" {
		m.Unit.Module = m.Unit.Name
	}
	var unknown []string
	for _, key := range meta.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return &m, unknown, nil
}

// lineSpan covers the 1-based line of f, without its newline.
func lineSpan(f *source.File, line int) source.Span {
	span := source.Span{File: f.ID}
	if line < 1 {
		return span
	}
	end := len(f.Content)
	if line-1 < len(f.LineIdx) {
		end = int(f.LineIdx[line-1])
	}
	start := 0
	if line >= 2 && line-2 < len(f.LineIdx) {
		start = int(f.LineIdx[line-2]) + 1
	}
	if start > end {
		start = end
	}
	span.Start = mustU32(start)
	span.End = mustU32(end)
	return span
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("manifest offset overflow: %w", err))
	}
	return v
}
