// Package registry implements the repository registry of spec.md §4.F:
// three URL-keyed mappings — default, present, and known factory
// types — and the get_or_create probe sequence that ties them
// together.
package registry

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
)

// Factory constructs a Repository for a candidate URL. Returning a
// non-nil Repository does not mean the URL is valid for this factory;
// the caller still probes ReferenceSyntacticallyValid() && Exists().
type Factory func(url string) repository.Repository

// Registry holds the three mappings of spec.md §4.F. Mutation is
// expected only from the caller's initialization thread (per §5); a
// mutex still guards present, matching the teacher's habit of
// defending process-wide singletons even under a documented
// single-threaded contract.
type Registry struct {
	knownTypes []Factory

	mu      sync.Mutex
	def     map[string]repository.Repository
	present map[string]repository.Repository
}

// New builds a Registry with knownTypes as the ordered set of backend
// factories probed by GetOrCreate.
func New(knownTypes ...Factory) *Registry {
	return &Registry{
		knownTypes: knownTypes,
		def:        make(map[string]repository.Repository),
		present:    make(map[string]repository.Repository),
	}
}

// SetDefault registers repo as a default repository for url, per
// target-app selection (§4.H). Call only during initialization.
func (r *Registry) SetDefault(url string, repo repository.Repository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def[url] = repo
}

// RemoveDefault removes url from the default set, e.g. when
// set_current swaps the active target app.
func (r *Registry) RemoveDefault(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.def, url)
}

// Defaults returns every currently registered default repository, in
// no particular order — callers needing probe order should track it
// themselves at registration time.
func (r *Registry) Defaults() []repository.Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Repository, 0, len(r.def))
	for _, repo := range r.def {
		out = append(out, repo)
	}
	return out
}

// GetOrCreate implements spec.md §4.F's get_or_create(url).
func (r *Registry) GetOrCreate(ctx context.Context, url string) (repository.Repository, error) {
	r.mu.Lock()
	if repo, ok := r.def[url]; ok {
		r.mu.Unlock()
		return repo, nil
	}
	if repo, ok := r.present[url]; ok {
		r.mu.Unlock()
		return repo, nil
	}
	r.mu.Unlock()

	for _, factory := range r.knownTypes {
		candidate := factory(url)
		if !candidate.ReferenceSyntacticallyValid() {
			continue
		}
		if !candidate.Exists(ctx) {
			continue
		}

		r.mu.Lock()
		r.present[url] = candidate
		r.mu.Unlock()

		if err := candidate.Refresh(ctx); err != nil {
			return candidate, errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: %s", url, err)
		}
		return candidate, nil
	}

	return nil, errors.Wrapf(repository.ErrRepositoryNotFound, "%s", url)
}

// ResolveWithoutRepository probes every default repository's
// TryGetPackageText for partial (which has no RepositoryURL), per
// spec.md §4.F's note: "the first that returns a non-empty body wins."
// It needs partial resolved to a complete reference first, which the
// caller obtains per-repository via TryInferReference; this helper
// exists for the narrower text-probing case spec.md describes.
func (r *Registry) ResolveWithoutRepository(partial reference.Partial, resolve func(repository.Repository) (string, bool)) (repository.Repository, string, bool) {
	for _, repo := range r.Defaults() {
		if text, ok := resolve(repo); ok && text != "" {
			return repo, text, true
		}
	}
	return nil, "", false
}
