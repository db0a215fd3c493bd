package command

import (
	"os"
	"path/filepath"
	"time"

	"uppm/pkg/config"
	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/engine/csup"
	"uppm/pkg/uppm/engine/ps1"
	"uppm/pkg/uppm/httpclient"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/repository/fsrepo"
	"uppm/pkg/uppm/repository/gitrepo"
	"uppm/pkg/uppm/repository/registry"
)

// newEngineRegistry registers every script engine uppm ships with,
// each materializing resolved imports under importsDir.
func newEngineRegistry() *engine.Registry {
	dir := importsDir()
	return engine.NewRegistry(csup.New(dir), ps1.New(dir))
}

// gitCheckoutsDir is where gitrepo.Options.TempDir points every remote
// repository's working tree at, under the config directory.
func gitCheckoutsDir() string {
	return filepath.Join(config.Dir(), "repos")
}

// importsDir is the temporary_folder every script engine materializes
// resolved `#load` imports under, as
// `<importsDir>/<engine-extension>/<ref-slug>.<extension>`.
func importsDir() string {
	return filepath.Join(config.Dir(), "imports")
}

// newRepositoryRegistry wires the known repository backend factories,
// probed in order by registry.GetOrCreate: a remote Git working tree
// (recognized syntactically by gitrepo.Looks) first, then a local
// filesystem directory for anything else.
func newRepositoryRegistry() *registry.Registry {
	engines := newEngineRegistry()
	client := httpclient.New(httpclient.Options{
		UserAgent: UserAgent(),
		Timeout:   30 * time.Second,
	})

	_ = os.MkdirAll(gitCheckoutsDir(), 0o755)

	return registry.New(
		func(url string) repository.Repository {
			return gitrepo.New(url, engines, gitrepo.Options{
				TempDir:    gitCheckoutsDir(),
				HTTPClient: client,
			})
		},
		func(url string) repository.Repository {
			return fsrepo.New(url, engines)
		},
	)
}
