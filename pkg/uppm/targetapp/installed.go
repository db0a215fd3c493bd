package targetapp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/reference"
)

// ErrUnsupportedScope is returned by EnumerateInstalledPackages when
// scope is not exactly Global or Local — a combined bitflag (or zero
// value) has no single pack folder to walk.
var ErrUnsupportedScope = errors.New("unsupported or combined installed-package scope")

// packsFolder returns the on-disk folder backing scope, or "" if scope
// is not a single recognized value (the combined Global|Local bitflag
// has no single folder — see DESIGN.md's Open Questions note).
func (a TargetApp) packsFolder(scope Scope) string {
	switch scope {
	case Global:
		return a.GlobalPacksFolder
	case Local:
		return a.LocalPacksFolder
	default:
		return ""
	}
}

// EnumerateInstalledPackages walks scope's pack folder, laid out as
// <name>/<version>.<extension>, returning one InstalledPackage per
// resolvable leaf. Scope must be exactly Global or Local; calling it
// with a combined bitflag (or an unrecognized value) returns
// ErrUnsupportedScope, per spec.md's Open Questions note that a
// combined scope is not a defined behavior.
func (a TargetApp) EnumerateInstalledPackages(scope Scope, engines *engine.Registry) ([]InstalledPackage, error) {
	folder := a.packsFolder(scope)
	if folder == "" {
		if scope != Global && scope != Local {
			return nil, errors.Wrapf(ErrUnsupportedScope, "%s: scope %d", a.ShortName, scope)
		}
		return nil, nil
	}

	var out []InstalledPackage
	_ = filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if _, ok := engines.Lookup(ext); !ok {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 2 {
			return nil
		}
		name := parts[0]
		version := strings.TrimSuffix(parts[1], filepath.Ext(parts[1]))

		out = append(out, InstalledPackage{
			Ref:   reference.Complete{Name: name, Version: version, TargetApp: a.ShortName},
			Scope: scope,
			Path:  path,
		})
		return nil
	})
	return out, nil
}

// TryGetInstalledPackage looks for an installed package matching
// partial's name (case-insensitively) in scope, returning the first
// match found by EnumerateInstalledPackages — a short-circuitable fold,
// per spec.md §4.H. An unsupported scope is treated as "not found"
// rather than propagated, since every resolver call site only ever
// passes a single resolved scope.
func (a TargetApp) TryGetInstalledPackage(partial reference.Partial, scope Scope, engines *engine.Registry) (InstalledPackage, bool) {
	installed, err := a.EnumerateInstalledPackages(scope, engines)
	if err != nil {
		return InstalledPackage{}, false
	}
	for _, pkg := range installed {
		if strings.EqualFold(pkg.Ref.Name, partial.Name) {
			return pkg, true
		}
	}
	return InstalledPackage{}, false
}
