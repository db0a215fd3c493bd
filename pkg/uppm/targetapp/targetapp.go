// Package targetapp implements the target-application registry of
// spec.md §4.H: a process-wide singleton map keyed by short name, each
// entry owning a global/local install-folder pair and a default
// repository.
package targetapp

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/repository/registry"
)

// ErrUnknownTargetApp is returned when metadata references a target
// app not in the registry.
var ErrUnknownTargetApp = errors.New("unknown target app")

// Scope is the installation scope: Global or Local, per spec.md's
// glossary. It is declared as a bitflag so callers that need both
// scopes can combine them, though §4.H's only consumer ever queries
// one scope at a time (documented as an Open Question in DESIGN.md).
type Scope int

const (
	Global Scope = 1 << iota
	Local
)

// InstalledPackage is a minimal on-disk record describing a package
// already materialized into a target app's pack folder.
type InstalledPackage struct {
	Ref   reference.Complete
	Scope Scope
	Path  string
}

// TargetApp is one registered application uppm manages packages for.
type TargetApp struct {
	ShortName            string
	Architecture         string
	AppFolder            string
	GlobalPacksFolder    string
	LocalPacksFolder     string
	Executable           string
	DefaultRepositoryURL string
	DefaultRepository    repository.Repository

	// Version is the installed application's own version string (e.g.
	// a WordPress or similar host version), used to validate a
	// package's PackageMeta.CompatibleAppVersion constraint at resolve
	// time. Empty means unknown/unconstrained.
	Version string
}

// AppVersion returns the installed application's own version, for the
// resolver's compatible_app_version check (resolver.TargetAppHandle).
func (a TargetApp) AppVersion() string { return a.Version }

// Registry is the process-wide singleton of spec.md §4.H, guarded by a
// mutex even though §5 says all mutation happens from the caller's
// initialization thread before resolver operations begin — the
// teacher's code defends process-wide state with a mutex regardless of
// its documented single-threaded contract, and this repository follows
// the same habit.
type Registry struct {
	repos *registry.Registry

	mu      sync.Mutex
	apps    map[string]TargetApp
	current string
}

// NewRegistry builds an empty target-app registry. repos wires
// SetCurrent's default-repository swap into the shared repository
// registry.
func NewRegistry(repos *registry.Registry) *Registry {
	return &Registry{repos: repos, apps: make(map[string]TargetApp)}
}

// Register adds or replaces app, keyed by its ShortName.
func (r *Registry) Register(app TargetApp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[strings.ToLower(app.ShortName)] = app
}

// Get looks up a registered target app by short name.
func (r *Registry) Get(shortName string) (TargetApp, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[strings.ToLower(shortName)]
	return app, ok
}

// Current returns the active target app, if SetCurrent has been
// called.
func (r *Registry) Current() (TargetApp, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == "" {
		return TargetApp{}, false
	}
	app, ok := r.apps[r.current]
	return app, ok
}

// SetCurrent swaps the active target app: the previous one's default
// repository is removed from the repository registry's default set,
// and the new one's is registered, per spec.md §4.H.
func (r *Registry) SetCurrent(shortName string) error {
	r.mu.Lock()
	app, ok := r.apps[strings.ToLower(shortName)]
	previous, hadPrevious := r.apps[r.current]
	r.mu.Unlock()

	if !ok {
		return errors.Wrapf(ErrUnknownTargetApp, "%s", shortName)
	}

	if r.repos != nil {
		if hadPrevious && previous.DefaultRepositoryURL != "" {
			r.repos.RemoveDefault(previous.DefaultRepositoryURL)
		}
		if app.DefaultRepository != nil {
			r.repos.SetDefault(app.DefaultRepositoryURL, app.DefaultRepository)
		}
	}

	r.mu.Lock()
	r.current = strings.ToLower(shortName)
	r.mu.Unlock()
	return nil
}
