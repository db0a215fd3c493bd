// Package resolver implements the dependency resolver of spec.md
// §4.J: reconciling a requested dependency against whatever the
// current target app already has installed, loading the winning
// reference through the repository registry, and flattening the
// result into the root package's dependency set with conflict
// resolution. Grounded on the teacher's
// pkg/pm/resolution/resolver.go queue-and-flatten loop, generalized
// from flat SemVer comparison to scope-aware Version.Compare with an
// explicit inference policy, and from its single root-pin conflict
// table to the fuller phase-1/phase-3 decision tables below.
package resolver

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/repository/registry"
	"uppm/pkg/uppm/targetapp"
)

// TargetAppHandle is the narrow slice of targetapp.TargetApp the
// resolver depends on, per spec.md §3's note that the resolver only
// ever asks a target app "is this installed in scope S". A
// targetapp.TargetApp value satisfies this directly; tests may supply
// a lighter fake.
type TargetAppHandle interface {
	TryGetInstalledPackage(partial reference.Partial, scope targetapp.Scope, engines *engine.Registry) (targetapp.InstalledPackage, bool)

	// AppVersion returns the installed application's own version, used
	// to validate a loaded dependency's compatible_app_version
	// constraint. Empty means unknown/unconstrained.
	AppVersion() string
}

// Package is the resolver's in-memory dependency-tree node, per
// spec.md §3's "Package" record.
type Package struct {
	Ref    reference.Complete
	Meta   metadata.Meta
	Engine engine.Engine
	Text   string

	TargetApp TargetAppHandle
	Scope     targetapp.Scope
	Depth     int
	Root      *Package

	// FlatDependencies is populated only on the root node; descendants
	// carry a nil map, per spec.md §3's invariant.
	FlatDependencies map[string]*Package
}

// Confirm asks the user a yes/no question; it is supplied by the
// caller's user-input collaborator (spec.md keeps this out of core
// scope). Returning false is the conservative choice for a caller
// that has nothing better to wire in.
type Confirm func(prompt string) bool

// Resolver builds dependency trees against a repository registry and
// an engine registry, per spec.md §4.J.
type Resolver struct {
	Repos   *registry.Registry
	Engines *engine.Registry

	// Confirm is consulted for every "ask user" decision in the phase-1
	// table below. If nil, or if Unattended is true, DefaultAnswer is
	// used instead and Confirm is never called — the same unattended
	// fallback spec.md §4.K describes for license confirmation, applied
	// uniformly here since phase-1's own ask-user points are otherwise
	// unspecified for unattended operation.
	Confirm       Confirm
	Unattended    bool
	DefaultAnswer bool

	// FetchConcurrency bounds how many dependencies are loaded
	// concurrently at each level of the tree. Zero selects
	// defaultFetchConcurrency.
	FetchConcurrency int
}

// NewRoot builds the root Package for a freshly loaded package, ready
// for Build. scope is the scope the caller requested (e.g. the
// install target); it is narrowed to Global if loaded.Meta forces it.
func NewRoot(loaded repository.Package, app TargetAppHandle, scope targetapp.Scope) *Package {
	root := &Package{
		Ref:              loaded.Entry.Ref,
		Meta:             loaded.Meta,
		Engine:           loaded.Engine,
		Text:             loaded.Text,
		TargetApp:        app,
		Depth:            0,
		FlatDependencies: make(map[string]*Package),
	}
	root.Scope = effectiveScope(scope, loaded.Meta)
	root.Root = root
	return root
}

// effectiveScope narrows requested to Global whenever meta forces it,
// per spec.md §3's "effective scope is Global if meta.force_global,
// else the inherited scope".
func effectiveScope(requested targetapp.Scope, meta metadata.Meta) targetapp.Scope {
	if meta.ForceGlobal {
		return targetapp.Global
	}
	return requested
}

// Build populates root.FlatDependencies by walking root.Meta.Dependencies
// and recursively every dependency's own dependencies, per spec.md
// §4.J. It never returns an error for an individual dependency that
// fails to load — those are logged and skipped, per the invariant that
// "a dependency whose load fails is absent from flat_dependencies but
// does not abort the build". It only returns an error if ctx is
// canceled.
func (r *Resolver) Build(ctx context.Context, root *Package) error {
	return r.buildChildren(ctx, root)
}

// defaultFetchConcurrency bounds concurrent phase-2 loads at one level
// of the tree, matching the teacher's resolver.go's g.SetLimit(16).
const defaultFetchConcurrency = 16

func (r *Resolver) fetchConcurrency() int {
	if r.FetchConcurrency > 0 {
		return r.FetchConcurrency
	}
	return defaultFetchConcurrency
}

type fetchResult struct {
	ref    reference.Partial
	loaded repository.Package
	err    error
}

// buildChildren reconciles every dependency of pkg against what's
// installed (phase 1, sequential: it may prompt the user), then loads
// the survivors concurrently (phase 2, bounded by fetchConcurrency,
// same pattern as the teacher's errgroup-bounded metadata fetch), then
// flattens each result into pkg.Root in its original insertion order
// (phase 3, which must stay sequential since conflict resolution
// mutates the shared flat_dependencies map).
func (r *Resolver) buildChildren(ctx context.Context, pkg *Package) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var toFetch []reference.Partial
	for _, depRef := range pkg.Meta.Dependencies {
		resolvedRef, skip := r.reconcileInstalled(pkg, depRef)
		if skip {
			continue
		}
		toFetch = append(toFetch, resolvedRef)
	}
	if len(toFetch) == 0 {
		return nil
	}

	results := make([]fetchResult, len(toFetch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fetchConcurrency())
	for i, ref := range toFetch {
		g.Go(func() error {
			loaded, err := r.load(gctx, ref)
			results[i] = fetchResult{ref: ref, loaded: loaded, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		if res.err != nil {
			logrus.Warnf("uppm: resolver: dependency %s required by %s could not be loaded: %s", res.ref, pkg.Ref, res.err)
			continue
		}

		compatible, err := metadata.CompatibleWithAppVersion(res.loaded.Meta.CompatibleAppVersion, pkg.TargetApp.AppVersion())
		if err != nil {
			logrus.Warnf("uppm: resolver: dependency %s required by %s: %s", res.loaded.Entry.Ref, pkg.Ref, err)
			continue
		}
		if !compatible {
			err := errors.Wrapf(metadata.ErrIncompatibleTargetAppVersion, "%s requires target app version %q, installed %q", res.loaded.Entry.Ref, res.loaded.Meta.CompatibleAppVersion, pkg.TargetApp.AppVersion())
			logrus.Warnf("uppm: resolver: dependency %s required by %s: %s", res.loaded.Entry.Ref, pkg.Ref, err)
			continue
		}

		candidate := &Package{
			Ref:       res.loaded.Entry.Ref,
			Meta:      res.loaded.Meta,
			Engine:    res.loaded.Engine,
			Text:      res.loaded.Text,
			TargetApp: pkg.TargetApp,
		}

		if err := r.merge(ctx, pkg, candidate); err != nil {
			return err
		}
	}
	return nil
}

// load resolves ref through the repository registry: a reference
// carrying an explicit repository URL is loaded from that repository
// alone; otherwise every default repository is tried in the order
// Registry.Defaults returns them, which is not defined, and the first
// that loads the package wins.
func (r *Resolver) load(ctx context.Context, ref reference.Partial) (repository.Package, error) {
	if ref.RepositoryURL != "" {
		repo, err := r.Repos.GetOrCreate(ctx, ref.RepositoryURL)
		if err != nil {
			return repository.Package{}, err
		}
		pkg, ok, err := repo.TryGetPackage(ref, r.Engines)
		if err != nil {
			return repository.Package{}, err
		}
		if !ok {
			return repository.Package{}, repository.ErrPackageNotFound
		}
		return pkg, nil
	}

	for _, repo := range r.Repos.Defaults() {
		pkg, ok, err := repo.TryGetPackage(ref, r.Engines)
		if err != nil {
			logrus.Warnf("uppm: resolver: repository %s failed to load %s: %s", repo.URL(), ref, err)
			continue
		}
		if ok {
			return pkg, nil
		}
	}
	return repository.Package{}, repository.ErrPackageNotFound
}

// merge inserts candidate into parent.Root.FlatDependencies, applying
// phase-3 conflict resolution against whatever is already there for
// its name, per spec.md §4.J.
func (r *Resolver) merge(ctx context.Context, parent *Package, candidate *Package) error {
	root := parent.Root
	key := strings.ToLower(candidate.Ref.Name)

	existing, exists := root.FlatDependencies[key]
	if !exists {
		candidate.Scope = effectiveScope(parent.Scope, candidate.Meta)
		candidate.Depth = parent.Depth + 1
		candidate.Root = root
		root.FlatDependencies[key] = candidate
		return r.buildChildren(ctx, candidate)
	}

	winner, candidateWon := resolveConflict(existing, candidate)
	root.FlatDependencies[key] = winner
	if !candidateWon {
		return nil
	}

	winner.Scope = effectiveScope(parent.Scope, winner.Meta)
	winner.Depth = parent.Depth + 1
	winner.Root = root
	return r.buildChildren(ctx, winner)
}
