// Package loader implements the four-step package-loading orchestration
// of spec.md §4.I, shared by every repository backend's TryGetPackage.
package loader

import (
	"github.com/pkg/errors"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
)

// ErrPackageNotFound mirrors repository.ErrPackageNotFound; kept local
// so this package has no import-cycle dependency on repository.
var ErrPackageNotFound = errors.New("package not found")

// ErrEngineUnavailable is returned when the resolved entry's extension
// has no registered engine.
var ErrEngineUnavailable = errors.New("script engine unavailable")

// ErrPackageTextUnavailable is returned when the catalog entry exists
// but its script text cannot be read.
var ErrPackageTextUnavailable = errors.New("package text unavailable")

// ErrMetadataUnavailable is returned when the engine cannot extract
// metadata from the package's text.
var ErrMetadataUnavailable = errors.New("package metadata unavailable")

// ErrCoreTooOld is returned when the package's required core version
// is newer than this build.
var ErrCoreTooOld = errors.New("package requires a newer uppm core")

// Backend is the minimal slice of repository.Repository the loader
// needs: infer a complete reference, fetch its text, and look up its
// engine by extension.
type Backend interface {
	TryInferReference(partial reference.Partial) (reference.Complete, bool)
	TryGetPackageText(ref reference.Complete) (string, bool)
	LookupEngineExtension(ref reference.Complete) (string, bool)
}

// Loaded is the four-step result: the resolved complete reference, the
// engine that understands it, its raw text, and its extracted
// metadata.
type Loaded struct {
	Ref    reference.Complete
	Engine engine.Engine
	Text   string
	Meta   metadata.Meta
}

// Load runs spec.md §4.I against repo for partial, using engines to
// resolve the engine by extension.
func Load(repo Backend, partial reference.Partial, engines *engine.Registry) (Loaded, error) {
	complete, ok := repo.TryInferReference(partial)
	if !ok {
		return Loaded{}, errors.Wrapf(ErrPackageNotFound, "%s", partial)
	}

	ext, ok := repo.LookupEngineExtension(complete)
	if !ok {
		return Loaded{}, errors.Wrapf(ErrEngineUnavailable, "%s", complete)
	}
	eng, ok := engines.Lookup(ext)
	if !ok {
		return Loaded{}, errors.Wrapf(ErrEngineUnavailable, "no engine registered for extension %q", ext)
	}

	text, ok := repo.TryGetPackageText(complete)
	if !ok {
		return Loaded{}, errors.Wrapf(ErrPackageTextUnavailable, "%s", complete)
	}

	meta, ok, err := eng.TryGetMeta(text, complete)
	if err != nil {
		if errors.Is(err, metadata.ErrIncompatibleCore) {
			return Loaded{}, errors.Wrapf(ErrCoreTooOld, "%s: %s", complete, err)
		}
		return Loaded{}, errors.Wrapf(ErrMetadataUnavailable, "%s: %s", complete, err)
	}
	if !ok {
		return Loaded{}, errors.Wrapf(ErrMetadataUnavailable, "%s", complete)
	}

	meta.Version = complete.Version

	return Loaded{Ref: complete, Engine: eng, Text: text, Meta: meta}, nil
}
