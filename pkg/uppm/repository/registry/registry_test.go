package registry

import (
	"context"
	"testing"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
)

func TestGetOrCreateProbesFactoriesInOrder(t *testing.T) {
	var order []string

	rejectsFactory := func(url string) repository.Repository {
		order = append(order, "reject")
		return &stubRepo{url: url, valid: false}
	}
	acceptsFactory := func(url string) repository.Repository {
		order = append(order, "accept")
		return &stubRepo{url: url, valid: true, reachable: true}
	}

	r := New(rejectsFactory, acceptsFactory)

	repo, err := r.GetOrCreate(context.Background(), "https://example.com/repo.git")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if repo.URL() != "https://example.com/repo.git" {
		t.Errorf("URL = %q", repo.URL())
	}
	if len(order) != 2 || order[0] != "reject" || order[1] != "accept" {
		t.Errorf("probe order = %v, want [reject accept]", order)
	}

	// Second call should hit the present cache, not re-probe factories.
	order = nil
	if _, err := r.GetOrCreate(context.Background(), "https://example.com/repo.git"); err != nil {
		t.Fatalf("second GetOrCreate error: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected cached lookup, probed again: %v", order)
	}
}

func TestGetOrCreateNotFound(t *testing.T) {
	r := New(func(url string) repository.Repository { return &stubRepo{url: url} })
	if _, err := r.GetOrCreate(context.Background(), "nope"); err == nil {
		t.Fatal("expected RepositoryNotFound")
	}
}

func TestDefaultTakesPriorityOverPresent(t *testing.T) {
	r := New(func(url string) repository.Repository { return &stubRepo{url: url, valid: true, reachable: true} })
	if _, err := r.GetOrCreate(context.Background(), "https://example.com/repo.git"); err != nil {
		t.Fatal(err)
	}
	def := &stubRepo{url: "https://example.com/repo.git", valid: true, reachable: true}
	r.SetDefault("https://example.com/repo.git", def)

	got, err := r.GetOrCreate(context.Background(), "https://example.com/repo.git")
	if err != nil {
		t.Fatal(err)
	}
	if got != repository.Repository(def) {
		t.Error("expected the default repository to be returned")
	}
}

// stubRepo is a minimal repository.Repository double for registry
// tests; it never builds a real catalog.
type stubRepo struct {
	url       string
	valid     bool
	reachable bool
	refreshed int
}

func (s *stubRepo) URL() string                       { return s.url }
func (s *stubRepo) ReferenceSyntacticallyValid() bool  { return s.valid }
func (s *stubRepo) Exists(ctx context.Context) bool    { return s.reachable }
func (s *stubRepo) Ready() bool                        { return s.refreshed > 0 }
func (s *stubRepo) Refresh(ctx context.Context) error  { s.refreshed++; return nil }
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
	return repository.Package{}, false, nil
}
