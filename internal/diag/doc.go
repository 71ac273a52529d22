// Package diag defines the diagnostic model shared by every phase of the
// layout and metadata pipeline.
//
// Two kinds of failure exist:
//
//   - Diagnostic values describe problems in the input declarations
//     (unknown types, recursive value types, fields the foreign runtime
//     cannot describe). They carry a stable Code, a Severity and a primary
//     source.Span inside the manifest, and are collected into a Bag through
//     the Reporter interface. A diagnostic aborts code generation for the
//     declaration it names; other declarations continue.
//   - InternalError panics (ICE, Assert) mark states the engine itself
//     rules out, such as a stored field missing from its own layout.
//     They are never recovered inside the engine.
//
// Rendering lives in internal/diagfmt; FormatShort is the stable
// one-line-per-entry form used by tests and the CLI's short mode.
package diag
