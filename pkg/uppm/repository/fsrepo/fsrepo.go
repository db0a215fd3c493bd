// Package fsrepo implements the filesystem repository backend of
// spec.md §4.E: a directory tree laid out as
// <root>/<author>/<name>/<version>.<extension>, walked to build the
// catalog.
package fsrepo

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/loader"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
)

// absolutePattern and relativePattern recognize filesystem repository
// URLs per spec.md §6: absolute paths start with "\\", "//", or a drive
// letter; relative paths start with ".", "..", "\", or "/".
var (
	absolutePattern = regexp.MustCompile(`^(\\\\|//|[A-Za-z]:[\\/])`)
	relativePattern = regexp.MustCompile(`^(\.\.?|[\\/])`)
)

// Looks reports whether url has the shape of a filesystem repository
// reference, without touching the filesystem.
func Looks(url string) bool {
	return absolutePattern.MatchString(url) || relativePattern.MatchString(url)
}

// Repository is a filesystem-backed repository.Repository.
type Repository struct {
	url     string
	engines *engine.Registry

	mu      sync.Mutex
	ready   bool
	catalog map[reference.Complete]repository.CatalogEntry
}

// New constructs a filesystem repository rooted at url. engines is
// consulted during catalog builds to recognize which file extensions
// are resolvable.
func New(url string, engines *engine.Registry) *Repository {
	return &Repository{url: url, engines: engines}
}

func (r *Repository) URL() string { return r.url }

func (r *Repository) ReferenceSyntacticallyValid() bool { return Looks(r.url) }

func (r *Repository) Exists(ctx context.Context) bool {
	info, err := os.Stat(r.url)
	return err == nil && info.IsDir()
}

func (r *Repository) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Refresh walks <url>/<author>/<name>/<file> and inserts one catalog
// entry per leaf whose extension has a registered engine.
func (r *Repository) Refresh(ctx context.Context) error {
	catalog := make(map[reference.Complete]repository.CatalogEntry)

	err := filepath.WalkDir(r.url, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "" {
			return nil
		}
		if _, ok := r.engines.Lookup(ext); !ok {
			return nil
		}

		rel, err := filepath.Rel(r.url, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			logrus.WithField("path", path).Debug("fsrepo: ignoring file outside <author>/<name>/<version>.<ext> layout")
			return nil
		}
		name := parts[1]
		versionStr := strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))

		complete := reference.Complete{Name: name, Version: versionStr, RepositoryURL: r.url}
		catalog[complete] = repository.CatalogEntry{Ref: complete, Extension: ext, Locator: path}
		return nil
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.ready = false
		logrus.WithError(err).WithField("url", r.url).Warn("fsrepo: refresh failed")
		return err
	}
	r.catalog = catalog
	r.ready = true
	return nil
}

func (r *Repository) Catalog() map[reference.Complete]repository.CatalogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[reference.Complete]repository.CatalogEntry, len(r.catalog))
	for k, v := range r.catalog {
		out[k] = v
	}
	return out
}

func (r *Repository) entry(ref reference.Complete) (repository.CatalogEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.catalog[ref]
	return e, ok
}

func (r *Repository) TryGetPackageText(ref reference.Complete) (string, bool) {
	e, ok := r.entry(ref)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(e.Locator)
	if err != nil {
		logrus.WithError(err).WithField("path", e.Locator).Warn("fsrepo: failed to read package text")
		return "", false
	}
	return string(data), true
}

func (r *Repository) TryGetScriptEngine(ref reference.Complete, engines *engine.Registry) (engine.Engine, bool) {
	e, ok := r.entry(ref)
	if !ok {
		return nil, false
	}
	return engines.Lookup(e.Extension)
}

func (r *Repository) LookupEngineExtension(ref reference.Complete) (string, bool) {
	e, ok := r.entry(ref)
	if !ok {
		return "", false
	}
	return e.Extension, true
}

func (r *Repository) TryInferReference(partial reference.Partial) (reference.Complete, bool) {
	return repository.InferReference(partial, r.url, r.Catalog())
}

func (r *Repository) TryGetPackage(partial reference.Partial, engines *engine.Registry) (repository.Package, bool, error) {
	loaded, err := loader.Load(r, partial, engines)
	if err != nil {
		return repository.Package{}, false, err
	}
	entry, _ := r.entry(loaded.Ref)
	return repository.Package{Entry: entry, Engine: loaded.Engine, Text: loaded.Text, Meta: loaded.Meta}, true, nil
}
