package resolver

import (
	"context"
	"strings"
	"testing"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/engine/csup"
	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/repository/registry"
	"uppm/pkg/uppm/targetapp"
)

// stubRepo is an in-memory repository.Repository keyed by package
// name, used to drive the resolver's load phase without any real
// backend.
type stubRepo struct {
	url      string
	packages map[string]repository.Package
}

func newStubRepo(url string, pkgs ...repository.Package) *stubRepo {
	s := &stubRepo{url: url, packages: make(map[string]repository.Package)}
	for _, p := range pkgs {
		s.packages[strings.ToLower(p.Entry.Ref.Name)] = p
	}
	return s
}

func (s *stubRepo) URL() string                        { return s.url }
func (s *stubRepo) ReferenceSyntacticallyValid() bool   { return true }
func (s *stubRepo) Exists(ctx context.Context) bool     { return true }
func (s *stubRepo) Ready() bool                         { return true }
func (s *stubRepo) Refresh(ctx context.Context) error   { return nil }
func (s *stubRepo) Catalog() map[reference.Complete]repository.CatalogEntry {
	return nil
}
func (s *stubRepo) TryGetPackageText(ref reference.Complete) (string, bool) { return "", false }
func (s *stubRepo) TryGetScriptEngine(ref reference.Complete, engines *engine.Registry) (engine.Engine, bool) {
	return nil, false
}
func (s *stubRepo) TryInferReference(partial reference.Partial) (reference.Complete, bool) {
	return reference.Complete{}, false
}
func (s *stubRepo) TryGetPackage(partial reference.Partial, engines *engine.Registry) (repository.Package, bool, error) {
	p, ok := s.packages[strings.ToLower(partial.Name)]
	return p, ok, nil
}

func pkg(name, version string, deps ...reference.Partial) repository.Package {
	return repository.Package{
		Entry: repository.CatalogEntry{Ref: reference.Complete{Name: name, Version: version, RepositoryURL: "test://repo"}},
		Meta: metadata.Meta{
			Name:         name,
			Version:      version,
			Dependencies: deps,
		},
	}
}

// fakeInstalled is a minimal TargetAppHandle that reports one canned
// installed package per name.
type fakeInstalled struct {
	installed  map[string]targetapp.InstalledPackage
	appVersion string
}

func (f fakeInstalled) TryGetInstalledPackage(partial reference.Partial, scope targetapp.Scope, engines *engine.Registry) (targetapp.InstalledPackage, bool) {
	p, ok := f.installed[strings.ToLower(partial.Name)]
	return p, ok
}

func (f fakeInstalled) AppVersion() string { return f.appVersion }

func newResolver(repo repository.Repository) *Resolver {
	r := registry.New()
	r.SetDefault(repo.URL(), repo)
	return &Resolver{
		Repos:      r,
		Engines:    engine.NewRegistry(csup.New()),
		Unattended: true,
	}
}

func buildRoot(t *testing.T, res *Resolver, root repository.Package, app TargetAppHandle) *Package {
	t.Helper()
	node := NewRoot(root, app, targetapp.Global)
	if err := res.Build(context.Background(), node); err != nil {
		t.Fatalf("Build: %s", err)
	}
	return node
}

func TestBuildFlattensTransitiveDependencies(t *testing.T) {
	leaf := pkg("leaf", "1.0.0")
	mid := pkg("mid", "1.0.0", reference.Partial{Name: "leaf"})
	root := pkg("root", "1.0.0", reference.Partial{Name: "mid"})

	repo := newStubRepo("test://repo", leaf, mid, root)
	res := newResolver(repo)
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{}}

	node := buildRoot(t, res, root, app)

	if len(node.FlatDependencies) != 2 {
		t.Fatalf("expected 2 flattened dependencies, got %d: %+v", len(node.FlatDependencies), node.FlatDependencies)
	}
	if _, ok := node.FlatDependencies["leaf"]; !ok {
		t.Fatal("transitive dependency leaf missing from flat_dependencies")
	}
	if node.FlatDependencies["leaf"].Depth != 2 {
		t.Fatalf("leaf depth = %d, want 2", node.FlatDependencies["leaf"].Depth)
	}
	if node.FlatDependencies["mid"].Root != node {
		t.Fatal("mid.Root does not point at the resolver root")
	}
}

func TestReconcileExactMatchSkips(t *testing.T) {
	dep := pkg("dep", "1.0.0")
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep", Version: "1.0.0"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo)
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{
		"dep": {Ref: reference.Complete{Name: "dep", Version: "1.0.0"}},
	}}

	node := buildRoot(t, res, root, app)
	if len(node.FlatDependencies) != 0 {
		t.Fatalf("expected exact-match dependency to be skipped, got %+v", node.FlatDependencies)
	}
}

func TestReconcileMajorConflictSkips(t *testing.T) {
	dep := pkg("dep", "1.0.0")
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep", Version: "1.0.0"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo)
	// Installed major (2) is newer than requested major (1): Skip.
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{
		"dep": {Ref: reference.Complete{Name: "dep", Version: "2.0.0"}},
	}}

	node := buildRoot(t, res, root, app)
	if len(node.FlatDependencies) != 0 {
		t.Fatalf("expected major-conflict dependency to be skipped, got %+v", node.FlatDependencies)
	}
}

func TestReconcileUpdateWhenUnattendedDeclines(t *testing.T) {
	dep := pkg("dep", "1.5.0")
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep", Version: "1.5.0"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo) // Unattended, DefaultAnswer defaults to false.
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{
		"dep": {Ref: reference.Complete{Name: "dep", Version: "1.0.0"}},
	}}

	node := buildRoot(t, res, root, app)
	if len(node.FlatDependencies) != 0 {
		t.Fatalf("unattended decline should skip the update, got %+v", node.FlatDependencies)
	}
}

func TestReconcileUpdateWhenUnattendedAccepts(t *testing.T) {
	dep := pkg("dep", "1.5.0")
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep", Version: "1.5.0"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo)
	res.DefaultAnswer = true
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{
		"dep": {Ref: reference.Complete{Name: "dep", Version: "1.0.0"}},
	}}

	node := buildRoot(t, res, root, app)
	if _, ok := node.FlatDependencies["dep"]; !ok {
		t.Fatalf("expected accepted update to load dep, got %+v", node.FlatDependencies)
	}
}

func TestReconcileDowngradeWhenUnattendedDeclines(t *testing.T) {
	dep := pkg("dep", "1.0.0")
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep", Version: "1.0.0"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo) // Unattended, DefaultAnswer defaults to false.
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{
		"dep": {Ref: reference.Complete{Name: "dep", Version: "1.5.0"}},
	}}

	node := buildRoot(t, res, root, app)
	if len(node.FlatDependencies) != 0 {
		t.Fatalf("unattended decline should keep the installed version and skip, got %+v", node.FlatDependencies)
	}
}

func TestReconcileDowngradeWhenUnattendedAccepts(t *testing.T) {
	dep := pkg("dep", "1.0.0")
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep", Version: "1.0.0"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo)
	res.DefaultAnswer = true
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{
		"dep": {Ref: reference.Complete{Name: "dep", Version: "1.5.0"}},
	}}

	node := buildRoot(t, res, root, app)
	if _, ok := node.FlatDependencies["dep"]; !ok {
		t.Fatalf("expected accepted downgrade-keep to load dep, got %+v", node.FlatDependencies)
	}
}

func TestConflictResolutionSpecialVsSemanticalKeepsNonSpecial(t *testing.T) {
	special := &Package{Ref: reference.Complete{Name: "dep", Version: "nightly"}}
	semantical := &Package{Ref: reference.Complete{Name: "dep", Version: "1.0.0"}}

	winner, candidateWon := resolveConflict(special, semantical)
	if winner != semantical || !candidateWon {
		t.Fatalf("expected semantical candidate to displace special existing entry")
	}

	winner, candidateWon = resolveConflict(semantical, special)
	if winner != semantical || candidateWon {
		t.Fatalf("expected semantical existing entry to win over special candidate")
	}
}

func TestConflictResolutionHigherSemanticalWins(t *testing.T) {
	low := &Package{Ref: reference.Complete{Name: "dep", Version: "1.0.0"}}
	high := &Package{Ref: reference.Complete{Name: "dep", Version: "2.0.0"}}

	winner, candidateWon := resolveConflict(low, high)
	if winner != high || !candidateWon {
		t.Fatalf("expected the higher version to win")
	}

	winner, candidateWon = resolveConflict(high, low)
	if winner != high || candidateWon {
		t.Fatalf("expected the existing higher version to stay, no rebuild")
	}
}

func TestConflictResolutionBothLatestKeepsExisting(t *testing.T) {
	e := &Package{Ref: reference.Complete{Name: "dep", Version: "latest"}}
	c := &Package{Ref: reference.Complete{Name: "dep", Version: "latest"}}

	winner, candidateWon := resolveConflict(e, c)
	if winner != e || candidateWon {
		t.Fatalf("expected existing to win when both are latest")
	}
}

func TestCompatibleAppVersionConstraintBlocksIncompatibleDependency(t *testing.T) {
	dep := repository.Package{
		Entry: repository.CatalogEntry{Ref: reference.Complete{Name: "dep", Version: "1.0.0", RepositoryURL: "test://repo"}},
		Meta: metadata.Meta{
			Name:                 "dep",
			Version:              "1.0.0",
			CompatibleAppVersion: ">=2.0.0",
		},
	}
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo)
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{}, appVersion: "1.0.0"}

	node := buildRoot(t, res, root, app)
	if len(node.FlatDependencies) != 0 {
		t.Fatalf("expected incompatible-app-version dependency to be skipped, got %+v", node.FlatDependencies)
	}
}

func TestCompatibleAppVersionConstraintAllowsCompatibleDependency(t *testing.T) {
	dep := repository.Package{
		Entry: repository.CatalogEntry{Ref: reference.Complete{Name: "dep", Version: "1.0.0", RepositoryURL: "test://repo"}},
		Meta: metadata.Meta{
			Name:                 "dep",
			Version:              "1.0.0",
			CompatibleAppVersion: ">=1.0.0",
		},
	}
	root := pkg("root", "1.0.0", reference.Partial{Name: "dep"})

	repo := newStubRepo("test://repo", dep, root)
	res := newResolver(repo)
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{}, appVersion: "1.5.0"}

	node := buildRoot(t, res, root, app)
	if _, ok := node.FlatDependencies["dep"]; !ok {
		t.Fatalf("expected compatible dependency to load, got %+v", node.FlatDependencies)
	}
}

func TestLoadFailureIsLoggedAndSkipped(t *testing.T) {
	root := pkg("root", "1.0.0", reference.Partial{Name: "missing"})
	repo := newStubRepo("test://repo", root)
	res := newResolver(repo)
	app := fakeInstalled{installed: map[string]targetapp.InstalledPackage{}}

	node := buildRoot(t, res, root, app)
	if len(node.FlatDependencies) != 0 {
		t.Fatalf("expected missing dependency to be absent, got %+v", node.FlatDependencies)
	}
}
