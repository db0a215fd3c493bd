// Package engine implements the script-engine abstraction of spec.md
// §4.D: each engine owns one file extension, locates and validates its
// own metadata header, resolves its own import directives, and
// dispatches actions to an injected runtime.
package engine

import (
	"github.com/pkg/errors"

	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
)

// MaxImportDepth bounds the recursion of import-directive resolution.
const MaxImportDepth = 500

// ErrImportDepthExceeded is returned when import resolution recurses
// past MaxImportDepth.
var ErrImportDepthExceeded = errors.New("import depth exceeded")

// ErrActionUnsupported is returned by an engine that does not implement
// the requested action.
var ErrActionUnsupported = errors.New("action unsupported by this engine")

// Importer resolves a single import reference into the text of the
// package it names, recursing through the repository registry. It is
// supplied by the caller so engine implementations never depend on the
// repository package directly.
type Importer func(ref reference.Partial, parentRepo string, depth int) (text string, err error)

// Runtime is the host-side object an engine's run_action dispatches
// into. It is intentionally minimal: the actual script interpreter is
// out of scope, so engines are headless stubs over this interface.
type Runtime interface {
	// Invoke runs action against pack's script text, returning an error
	// on failure. pack identifies which package is running, for logging.
	Invoke(pack reference.Complete, action, scriptText string) error
}

// Engine is the contract every script engine implements.
type Engine interface {
	// Extension is the file extension (no dot) this engine owns.
	Extension() string

	// AllowSystemAssociation is advisory metadata for OS integration; the
	// core never reads it.
	AllowSystemAssociation() bool

	// TryGetMeta extracts metadata.Meta from text, recording self as the
	// resolved reference it belongs to.
	TryGetMeta(text string, self reference.Complete) (metadata.Meta, bool, error)

	// TryGetScriptText rewrites the import directives found in text to
	// point at materialized copies of the packages they name, using
	// importFn to fetch their text recursively; imports is not read by
	// the engines in this tree. parentRepo is the repository URL the
	// importing package itself resolved against, used to resolve
	// repository-relative import references.
	TryGetScriptText(text string, imports []reference.Partial, parentRepo string, importFn Importer) (string, bool, error)

	// RunAction dispatches action against rt for pack, using scriptText
	// as produced by TryGetScriptText.
	RunAction(rt Runtime, pack reference.Complete, action, scriptText string) (bool, error)
}

// Registry maps file extensions to the Engine that owns them, populated
// at startup per spec.md §4.D.
type Registry struct {
	byExtension map[string]Engine
}

// NewRegistry builds a Registry from a set of engines, keyed by their
// own Extension().
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{byExtension: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.byExtension[e.Extension()] = e
	}
	return r
}

// Lookup returns the engine registered for ext, if any.
func (r *Registry) Lookup(ext string) (Engine, bool) {
	e, ok := r.byExtension[ext]
	return e, ok
}

// Register adds or replaces the engine for its own extension.
func (r *Registry) Register(e Engine) {
	r.byExtension[e.Extension()] = e
}

// Extensions lists every extension this registry knows, for catalog
// walks that need to recognize package files by suffix.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		out = append(out, ext)
	}
	return out
}
