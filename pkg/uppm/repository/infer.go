package repository

import (
	"sort"
	"strings"

	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/version"
)

// InferReference implements spec.md §4.G against catalog, shared by
// every concrete repository backend. repoURL is the repository's own
// URL, used for step 1's mismatch check.
func InferReference(partial reference.Partial, repoURL string, catalog map[reference.Complete]CatalogEntry) (reference.Complete, bool) {
	if partial.RepositoryURL != "" && !strings.EqualFold(partial.RepositoryURL, repoURL) {
		return reference.Complete{}, false
	}

	var candidates []reference.Complete
	for ref := range catalog {
		if strings.EqualFold(ref.Name, partial.Name) {
			candidates = append(candidates, ref)
		}
	}
	if len(candidates) == 0 {
		return reference.Complete{}, false
	}

	if reference.IsSpecial(partial.Version) {
		for _, c := range candidates {
			if strings.EqualFold(c.Version, partial.Version) {
				return c, true
			}
		}
		return reference.Complete{}, false
	}

	if partial.Version == "" || strings.EqualFold(partial.Version, "latest") {
		for _, c := range candidates {
			if strings.EqualFold(c.Version, "latest") {
				return c, true
			}
		}
		return highestSemantical(candidates, nil)
	}

	inputVer, err := version.Parse(partial.Version)
	if err != nil {
		return reference.Complete{}, false
	}
	return highestSemantical(candidates, &inputVer)
}

// highestSemantical returns the candidate with the highest semantical
// version under Newest inference, optionally scope-restricted to agree
// with prefix in every component up to prefix.Scope(). Candidates with
// a non-semantical version string are skipped entirely.
func highestSemantical(candidates []reference.Complete, prefix *version.Version) (reference.Complete, bool) {
	type scored struct {
		ref reference.Complete
		v   version.Version
	}
	var pool []scored
	for _, c := range candidates {
		v, err := version.Parse(c.Version)
		if err != nil {
			continue
		}
		if prefix != nil && (v.Scope() < prefix.Scope() || !v.AgreesWithPrefix(*prefix)) {
			continue
		}
		pool = append(pool, scored{ref: c, v: v})
	}
	if len(pool) == 0 {
		return reference.Complete{}, false
	}

	sort.Slice(pool, func(i, j int) bool {
		return version.Less(pool[j].v, pool[i].v, version.PolicyNewest)
	})
	return pool[0].ref, true
}
