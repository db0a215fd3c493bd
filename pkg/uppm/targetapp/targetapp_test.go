package targetapp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/engine/csup"
	"uppm/pkg/uppm/reference"
)

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(TargetApp{ShortName: "Demo"})

	if _, ok := r.Get("demo"); !ok {
		t.Fatal("expected case-insensitive lookup to find Demo")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("unexpected hit for unregistered app")
	}
}

func TestSetCurrentUnknownApp(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.SetCurrent("nope"); err == nil {
		t.Fatal("expected ErrUnknownTargetApp")
	}
}

func TestSetCurrentSucceeds(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(TargetApp{ShortName: "demo"})
	if err := r.SetCurrent("demo"); err != nil {
		t.Fatal(err)
	}
	app, ok := r.Current()
	if !ok || app.ShortName != "demo" {
		t.Fatalf("Current() = %+v, ok=%v", app, ok)
	}
}

func TestEnumerateInstalledPackages(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "hello")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "1.0.0.csup"), []byte("/*\nuppm 1.0.0.0\n{name:hello,version:1.0.0}\n*/"), 0o644); err != nil {
		t.Fatal(err)
	}

	app := TargetApp{ShortName: "demo", GlobalPacksFolder: root}
	engines := engine.NewRegistry(csup.New())

	installed, err := app.EnumerateInstalledPackages(Global, engines)
	if err != nil {
		t.Fatalf("EnumerateInstalledPackages(Global): %s", err)
	}
	if len(installed) != 1 || installed[0].Ref.Name != "hello" {
		t.Fatalf("unexpected installed packages: %+v", installed)
	}

	local, err := app.EnumerateInstalledPackages(Local, engines)
	if err != nil {
		t.Fatalf("EnumerateInstalledPackages(Local): %s", err)
	}
	if len(local) != 0 {
		t.Fatal("Local scope should be empty: no LocalPacksFolder configured")
	}

	pkg, ok := app.TryGetInstalledPackage(reference.Partial{Name: "Hello"}, Global, engines)
	if !ok || pkg.Ref.Version != "1.0.0" {
		t.Fatalf("TryGetInstalledPackage failed: pkg=%+v ok=%v", pkg, ok)
	}
}

func TestEnumerateInstalledPackagesRejectsCombinedScope(t *testing.T) {
	app := TargetApp{ShortName: "demo", GlobalPacksFolder: t.TempDir(), LocalPacksFolder: t.TempDir()}
	engines := engine.NewRegistry(csup.New())

	_, err := app.EnumerateInstalledPackages(Global|Local, engines)
	if !errors.Is(err, ErrUnsupportedScope) {
		t.Fatalf("EnumerateInstalledPackages(Global|Local) err = %v, want ErrUnsupportedScope", err)
	}
}
