// Package repository defines the repository abstraction of spec.md
// §4.E: a capability set implemented by tagged variants (filesystem,
// Git) rather than inheritance, since cyclic dependencies between
// repository implementations are impossible by construction.
package repository

import (
	"context"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
)

// ErrRepositoryNotFound is returned when no known factory accepts a
// URL, or a referenced repository is syntactically valid but
// unreachable.
var ErrRepositoryNotFound = errors.New("repository not found")

// ErrRepositoryRefreshFailed is returned when a clone/fetch/scan fails.
// The repository remains registered, with Ready()==false.
var ErrRepositoryRefreshFailed = errors.New("repository refresh failed")

// ErrPackageNotFound is returned when the inference rules in infer.go
// yield no match.
var ErrPackageNotFound = errors.New("package not found")

// ErrEngineUnavailable is returned when a catalog entry's extension has
// no registered engine.
var ErrEngineUnavailable = errors.New("script engine unavailable")

// CatalogEntry is one resolvable package file inside a repository.
type CatalogEntry struct {
	Ref       reference.Complete
	Extension string
	// Locator is the package file's filesystem path: under the
	// repository root for fsrepo, under the local checkout for gitrepo.
	Locator string
}

// Package is the fully loaded result of §4.I's package loader: the
// catalog entry it came from, the engine that understands it, its
// script text, and its extracted metadata.
type Package struct {
	Entry  CatalogEntry
	Engine engine.Engine
	Text   string
	Meta   metadata.Meta
}

// Repository is the capability set spec.md §4.E and §9 describe: every
// operation reports success/failure and logs on failure rather than
// panicking, so callers can treat a single bad repository as a
// recoverable event.
type Repository interface {
	// URL is the repository's identifying URL, as registered.
	URL() string

	// ReferenceSyntacticallyValid reports whether URL has the shape this
	// backend accepts, performing no I/O.
	ReferenceSyntacticallyValid() bool

	// Exists actively probes reachability: HTTP HEAD for Git, directory
	// existence for filesystem.
	Exists(ctx context.Context) bool

	// Ready reports whether the most recent Refresh succeeded.
	Ready() bool

	// Refresh rebuilds the catalog; blocking.
	Refresh(ctx context.Context) error

	// Catalog returns the most recently built set of resolvable entries.
	Catalog() map[reference.Complete]CatalogEntry

	// TryGetPackageText returns the raw script text for ref, if present.
	TryGetPackageText(ref reference.Complete) (string, bool)

	// TryGetScriptEngine looks up the engine registered for ref's file
	// extension in the catalog.
	TryGetScriptEngine(ref reference.Complete, engines *engine.Registry) (engine.Engine, bool)

	// TryInferReference implements §4.G against this repository's
	// catalog.
	TryInferReference(partial reference.Partial) (reference.Complete, bool)

	// TryGetPackage orchestrates TryInferReference, TryGetScriptEngine,
	// TryGetPackageText, and metadata extraction through the shared
	// package-loader helper (§4.I), given a partial reference.
	TryGetPackage(partial reference.Partial, engines *engine.Registry) (Package, bool, error)
}
