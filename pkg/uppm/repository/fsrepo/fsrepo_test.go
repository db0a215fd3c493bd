package fsrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/engine/csup"
	"uppm/pkg/uppm/reference"
)

const samplePackage = `/*
uppm 1.0.0.0
{ name: "hello", version: "1.0.0", targetApp: "demo" }
*/
install-package hello
`

func writeSampleRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "someauthor", "hello")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "1.0.0.csup"), []byte(samplePackage), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLooks(t *testing.T) {
	cases := map[string]bool{
		`\\server\share`: true,
		`//unc/share`:    true,
		`C:\packages`:    true,
		`./relative`:     true,
		`../up`:          true,
		`/abs/unix`:      true,
		`https://x.git`:  false,
	}
	for url, want := range cases {
		if got := Looks(url); got != want {
			t.Errorf("Looks(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestRefreshAndTryGetPackage(t *testing.T) {
	root := writeSampleRepo(t)
	engines := engine.NewRegistry(csup.New())
	repo := New(root, engines)

	if !repo.ReferenceSyntacticallyValid() {
		t.Fatal("expected a relative-looking temp dir to be syntactically valid")
	}
	if !repo.Exists(context.Background()) {
		t.Fatal("expected Exists to find the temp dir")
	}

	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if !repo.Ready() {
		t.Fatal("expected Ready() after successful Refresh")
	}

	catalog := repo.Catalog()
	if len(catalog) != 1 {
		t.Fatalf("expected 1 catalog entry, got %d: %+v", len(catalog), catalog)
	}

	pkg, ok, err := repo.TryGetPackage(reference.Partial{Name: "hello"}, engines)
	if err != nil || !ok {
		t.Fatalf("TryGetPackage failed: ok=%v err=%v", ok, err)
	}
	if pkg.Meta.Name != "hello" || pkg.Meta.Version != "1.0.0" {
		t.Errorf("unexpected meta: %+v", pkg.Meta)
	}
	if pkg.Engine.Extension() != "csup" {
		t.Errorf("unexpected engine: %v", pkg.Engine.Extension())
	}
}

func TestTryGetPackageMissingName(t *testing.T) {
	root := writeSampleRepo(t)
	engines := engine.NewRegistry(csup.New())
	repo := New(root, engines)
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := repo.TryGetPackage(reference.Partial{Name: "nonexistent"}, engines); ok || err == nil {
		t.Fatal("expected PackageNotFound")
	}
}
