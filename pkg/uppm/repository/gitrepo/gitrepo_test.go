package gitrepo

import (
	"context"
	"errors"
	"testing"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/engine/csup"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
)

func TestLooks(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/repo.git":       true,
		"http://example.com/repo.git?x=1":    true,
		"https://example.com/repo.git:suffix": true,
		"https://example.com/repo":           false,
		"/local/path":                        false,
		"git@github.com:org/repo.git":        false,
	}
	for url, want := range cases {
		if got := Looks(url); got != want {
			t.Errorf("Looks(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestNewDefaultsToSynchronized(t *testing.T) {
	engines := engine.NewRegistry(csup.New())
	repo := New("https://example.com/repo.git", engines, Options{TempDir: t.TempDir()})
	if !repo.Synchronized() {
		t.Fatal("expected a repository constructed without NotSynchronized to be synchronized by default")
	}
}

func TestRefreshFailsWhenNotSynchronized(t *testing.T) {
	engines := engine.NewRegistry(csup.New())
	repo := New("https://example.com/repo.git", engines, Options{
		TempDir:         t.TempDir(),
		NotSynchronized: true,
	})

	if repo.Synchronized() {
		t.Fatal("expected Synchronized() == false")
	}

	err := repo.Refresh(context.Background())
	if !errors.Is(err, repository.ErrRepositoryRefreshFailed) {
		t.Fatalf("Refresh() = %v, want ErrRepositoryRefreshFailed", err)
	}
	if repo.Ready() {
		t.Fatal("expected a not-synchronized repository to never become ready")
	}
}

func TestTryGetPackageFailsWithoutRescanWhenNotSynchronized(t *testing.T) {
	engines := engine.NewRegistry(csup.New())
	repo := New("https://example.com/repo.git", engines, Options{
		TempDir:         t.TempDir(),
		NotSynchronized: true,
	})

	if err := repo.Refresh(context.Background()); !errors.Is(err, repository.ErrRepositoryRefreshFailed) {
		t.Fatalf("Refresh() = %v, want ErrRepositoryRefreshFailed", err)
	}

	_, ok, err := repo.TryGetPackage(reference.Partial{Name: "anything"}, engines)
	if ok {
		t.Fatal("expected TryGetPackage to fail on a not-synchronized repository")
	}
	if !errors.Is(err, repository.ErrRepositoryRefreshFailed) {
		t.Fatalf("TryGetPackage() err = %v, want ErrRepositoryRefreshFailed", err)
	}
}
