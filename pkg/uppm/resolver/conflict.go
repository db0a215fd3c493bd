package resolver

import (
	"github.com/sirupsen/logrus"

	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/version"
)

// resolveConflict implements spec.md §4.J's phase-3 ordered rules,
// applied to an existing flat_dependencies entry e and a freshly
// loaded candidate c for the same name. It returns the winner and
// whether c is the one that won (the caller only needs to build a
// fresh subtree when the candidate displaces an already-built entry).
func resolveConflict(e, c *Package) (winner *Package, candidateWon bool) {
	eClass := reference.Classify(e.Ref.Version)
	cClass := reference.Classify(c.Ref.Version)

	// 1. Both versions are special: keep e; log if they differ.
	if eClass == reference.ClassSpecial && cClass == reference.ClassSpecial {
		if e.Ref.Version != c.Ref.Version {
			logrus.Warnf("uppm: resolver: %s: special version conflict: keeping %q over %q", e.Ref.Name, e.Ref.Version, c.Ref.Version)
		}
		return e, false
	}

	eSpecial, cSpecial := eClass == reference.ClassSpecial, cClass == reference.ClassSpecial
	if eSpecial != cSpecial {
		// 2. Exactly one is special: keep the non-special one. If e was the
		// special one, c displaces it and must be (re)built.
		if eSpecial {
			return c, true
		}
		return e, false
	}

	eLatest, cLatest := eClass == reference.ClassLatest, cClass == reference.ClassLatest
	if eLatest != cLatest {
		// 3. Exactly one is latest: keep the more specific one. If e was
		// latest, c displaces it and must be (re)built.
		if eLatest {
			return c, true
		}
		return e, false
	}

	// 4. Both are latest: keep e.
	if eLatest && cLatest {
		return e, false
	}

	// 5. Both semantical: keep the higher under Newest inference.
	ev, _ := reference.AsVersion(e.Ref.Version)
	cv, _ := reference.AsVersion(c.Ref.Version)

	eZero := ev.Components(version.PolicyZero)
	cZero := cv.Components(version.PolicyZero)
	if eZero[0] != cZero[0] || eZero[1] != cZero[1] {
		logrus.Warnf("uppm: resolver: %s: incompatible versions in dependency tree: %s vs %s", e.Ref.Name, e.Ref.Version, c.Ref.Version)
	}

	if version.Compare(ev, cv, version.PolicyNewest) < 0 {
		return c, true
	}
	return e, false
}
