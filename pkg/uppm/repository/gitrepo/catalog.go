package gitrepo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
)

// walkCatalog runs the filesystem catalog build of spec.md §4.E
// against a checked-out Git worktree rooted at dir, recording repoURL
// (the original Git URL, not the local checkout path) as each entry's
// repository.
func walkCatalog(dir, repoURL string, engines *engine.Registry) (map[reference.Complete]repository.CatalogEntry, error) {
	catalog := make(map[reference.Complete]repository.CatalogEntry)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "" {
			return nil
		}
		if _, ok := engines.Lookup(ext); !ok {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			logrus.WithField("path", path).Debug("gitrepo: ignoring file outside <author>/<name>/<version>.<ext> layout")
			return nil
		}
		name := parts[1]
		versionStr := strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))

		complete := reference.Complete{Name: name, Version: versionStr, RepositoryURL: repoURL}
		catalog[complete] = repository.CatalogEntry{Ref: complete, Extension: ext, Locator: path}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}
