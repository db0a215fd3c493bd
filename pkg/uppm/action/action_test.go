package action

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/engine/csup"
	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/resolver"
	"uppm/pkg/uppm/targetapp"
)

type fakeRuntime struct {
	invoked []string
	fail    map[string]bool
}

func (f *fakeRuntime) Invoke(pack reference.Complete, action, scriptText string) error {
	f.invoked = append(f.invoked, pack.Name)
	if f.fail[strings.ToLower(pack.Name)] {
		return errors.New("boom")
	}
	return nil
}

func newApp(t *testing.T) *targetapp.Registry {
	t.Helper()
	apps := targetapp.NewRegistry(nil)
	apps.Register(targetapp.TargetApp{ShortName: "demo"})
	return apps
}

func leafPackage(name, license string, depth int) *resolver.Package {
	return &resolver.Package{
		Ref:    reference.Complete{Name: name, Version: "1.0.0"},
		Meta:   metadata.Meta{Name: name, Version: "1.0.0", TargetApp: "demo", License: license},
		Engine: csup.New(),
		Text:   "do the thing",
		Depth:  depth,
	}
}

func TestRunInvokesEngineForRootAndDependencies(t *testing.T) {
	root := leafPackage("root", "MIT", 0)
	dep := leafPackage("dep", "MIT", 1)
	root.FlatDependencies = map[string]*resolver.Package{"dep": dep}

	rt := &fakeRuntime{}
	r := &Runner{Apps: newApp(t), Runtime: rt, Unattended: true}

	if err := r.Run(context.Background(), root, "install", true, false); err != nil {
		t.Fatalf("Run: %s", err)
	}
	if len(rt.invoked) != 2 || rt.invoked[0] != "dep" || rt.invoked[1] != "root" {
		t.Fatalf("unexpected invocation order: %+v", rt.invoked)
	}
}

func TestRunUnknownTargetApp(t *testing.T) {
	root := leafPackage("root", "MIT", 0)
	root.Meta.TargetApp = "nonexistent"

	r := &Runner{Apps: newApp(t), Runtime: &fakeRuntime{}, Unattended: true}
	err := r.Run(context.Background(), root, "install", true, false)
	if !errors.Is(err, ErrUnknownTargetApp) {
		t.Fatalf("expected ErrUnknownTargetApp, got %v", err)
	}
}

func TestRunDependencyFailureAborts(t *testing.T) {
	root := leafPackage("root", "MIT", 0)
	dep := leafPackage("dep", "MIT", 1)
	root.FlatDependencies = map[string]*resolver.Package{"dep": dep}

	rt := &fakeRuntime{fail: map[string]bool{"dep": true}}
	r := &Runner{Apps: newApp(t), Runtime: rt, Unattended: true}

	err := r.Run(context.Background(), root, "install", true, false)
	if !errors.Is(err, ErrDependencyFailed) {
		t.Fatalf("expected ErrDependencyFailed, got %v", err)
	}
	if len(rt.invoked) != 1 {
		t.Fatalf("expected root's own action to be skipped after dependency failure, invoked=%+v", rt.invoked)
	}
}

func TestRunLicenseDeclinedUnattended(t *testing.T) {
	root := leafPackage("root", "GPL", 0)

	rt := &fakeRuntime{}
	r := &Runner{Apps: newApp(t), Runtime: rt, Unattended: true, DefaultAnswer: false}

	err := r.Run(context.Background(), root, "install", true, true)
	if !errors.Is(err, ErrLicenseDeclined) {
		t.Fatalf("expected ErrLicenseDeclined, got %v", err)
	}
	if len(rt.invoked) != 0 {
		t.Fatal("engine should never be invoked once the license is declined")
	}
}

func TestRunLicenseAcceptedUnattended(t *testing.T) {
	root := leafPackage("root", "GPL", 0)

	rt := &fakeRuntime{}
	r := &Runner{Apps: newApp(t), Runtime: rt, Unattended: true, DefaultAnswer: true}

	if err := r.Run(context.Background(), root, "install", true, true); err != nil {
		t.Fatalf("Run: %s", err)
	}
	if len(rt.invoked) != 1 {
		t.Fatalf("expected root action to run once license is accepted, invoked=%+v", rt.invoked)
	}
}

func TestRunUnsupportedActionBubblesEngineError(t *testing.T) {
	root := leafPackage("root", "MIT", 0)

	r := &Runner{Apps: newApp(t), Runtime: &fakeRuntime{}, Unattended: true}
	err := r.Run(context.Background(), root, "uninstall", true, false)
	if err == nil {
		t.Fatal("expected csup's single-action engine to reject \"uninstall\"")
	}
}
