// Package action implements the action runner of spec.md §4.K:
// depth-first recursive invocation of a script engine action across a
// resolved dependency tree, gating license confirmation behind an
// injected user-input collaborator. Grounded on the teacher's
// installer.InstallAll fan-out pattern (pkg/pm/installer/installer.go),
// narrowed to sequential dependency execution since spec.md §5 scopes
// concurrency to metadata fetch, not action dispatch.
package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/repository/registry"
	"uppm/pkg/uppm/resolver"
	"uppm/pkg/uppm/targetapp"
)

// ErrUnknownTargetApp is returned when a package's meta.target_app
// names an app the caller never registered.
var ErrUnknownTargetApp = errors.New("unknown target app")

// ErrLicenseDeclined is returned when the license-confirmation
// collaborator (or its unattended default) declines the install.
var ErrLicenseDeclined = errors.New("license declined")

// ErrDependencyFailed wraps the reference of the first dependency
// whose action failed, aborting the run with no rollback.
var ErrDependencyFailed = errors.New("dependency action failed")

// ErrScriptTextUnavailable is returned when the engine cannot resolve
// the package's import directives into runnable script text.
var ErrScriptTextUnavailable = errors.New("script text unavailable")

// ErrActionFailed is returned when the engine completed without error
// but reported the action itself as unsuccessful.
var ErrActionFailed = errors.New("action failed")

// Confirm asks the user a yes/no question.
type Confirm func(prompt string) bool

// Runner executes spec.md §4.K's run_action against a resolver.Package
// tree.
type Runner struct {
	Apps     *targetapp.Registry
	Repos    *registry.Registry
	Resolver *resolver.Resolver
	Runtime  engine.Runtime

	// Confirm gates both license confirmation and is otherwise unused;
	// Unattended/DefaultAnswer apply the same fallback pattern as
	// resolver.Resolver.
	Confirm       Confirm
	Unattended    bool
	DefaultAnswer bool
}

// Run implements spec.md §4.K's run_action(action, recursive,
// confirm_license), invoked on pkg (the root on first call, a
// dependency on recursive calls).
func (r *Runner) Run(ctx context.Context, pkg *resolver.Package, action string, recursive bool, confirmLicense bool) error {
	if _, ok := r.Apps.Get(pkg.Meta.TargetApp); !ok {
		return errors.Wrapf(ErrUnknownTargetApp, "%s", pkg.Meta.TargetApp)
	}

	if pkg.Depth == 0 && recursive {
		if len(pkg.FlatDependencies) == 0 && r.Resolver != nil {
			if err := r.Resolver.Build(ctx, pkg); err != nil {
				return errors.Wrap(err, "failed to build dependency tree")
			}
		}
		if action == "install" && confirmLicense {
			if !r.confirmLicenses(pkg) {
				return errors.Wrapf(ErrLicenseDeclined, "%s", pkg.Ref)
			}
		}
	}

	for _, dep := range orderedDependencies(pkg) {
		if err := r.Run(ctx, dep, action, true, confirmLicense); err != nil {
			return errors.Wrapf(ErrDependencyFailed, "%s: %s", dep.Ref, err)
		}
	}

	scriptText, ok, err := pkg.Engine.TryGetScriptText(pkg.Text, pkg.Meta.Imports, pkg.Ref.RepositoryURL, r.importer(ctx))
	if err != nil {
		return errors.Wrapf(err, "resolving imports for %s", pkg.Ref)
	}
	if !ok {
		return errors.Wrapf(ErrScriptTextUnavailable, "%s", pkg.Ref)
	}

	succeeded, err := pkg.Engine.RunAction(r.Runtime, pkg.Ref, action, scriptText)
	if err != nil {
		return err
	}
	if !succeeded {
		return errors.Wrapf(ErrActionFailed, "%s", pkg.Ref)
	}
	return nil
}

// importer builds the engine.Importer the engine uses to resolve
// `#load "..."` directives, loading each import through the repository
// registry: an import with its own repository URL is loaded from
// there, otherwise it falls back to parentRepo, the repository the
// importing script itself came from.
func (r *Runner) importer(ctx context.Context) engine.Importer {
	return func(ref reference.Partial, parentRepo string, depth int) (string, error) {
		repoURL := ref.RepositoryURL
		if repoURL == "" {
			repoURL = parentRepo
		}

		repo, err := r.Repos.GetOrCreate(ctx, repoURL)
		if err != nil {
			return "", err
		}

		complete, ok := repo.TryInferReference(ref)
		if !ok {
			return "", errors.Wrapf(repository.ErrPackageNotFound, "%s", ref)
		}
		text, ok := repo.TryGetPackageText(complete)
		if !ok {
			return "", errors.Wrapf(repository.ErrPackageNotFound, "%s", complete)
		}
		return text, nil
	}
}

// confirmLicenses builds a single prompt listing root's and every
// dependency's license, per spec.md §4.K step 2.
func (r *Runner) confirmLicenses(root *resolver.Package) bool {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", root.Ref.Name, root.Meta.License)
	for _, dep := range orderedDependencies(root) {
		fmt.Fprintf(&b, "%s: %s\n", dep.Ref.Name, dep.Meta.License)
	}
	return r.confirm(b.String())
}

func (r *Runner) confirm(prompt string) bool {
	if r.Unattended || r.Confirm == nil {
		return r.DefaultAnswer
	}
	return r.Confirm(prompt)
}

// orderedDependencies returns pkg.FlatDependencies sorted by name, so
// that fail-fast abort is deterministic across runs.
func orderedDependencies(pkg *resolver.Package) []*resolver.Package {
	names := make([]string, 0, len(pkg.FlatDependencies))
	for name := range pkg.FlatDependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*resolver.Package, 0, len(names))
	for _, name := range names {
		out = append(out, pkg.FlatDependencies[name])
	}
	return out
}
