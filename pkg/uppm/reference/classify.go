package reference

import (
	"fmt"
	"math"
	"strings"

	"uppm/pkg/uppm/version"
)

// Class is the version-string classification spec.md §3 uses to drive
// inference: latest, semantical, or special.
type Class int

const (
	// ClassEmpty means no version string was supplied at all.
	ClassEmpty Class = iota
	// ClassLatest is the case-insensitive literal "latest".
	ClassLatest
	// ClassSemantical parses cleanly against the version grammar.
	ClassSemantical
	// ClassSpecial is anything else: non-empty, not latest, not semantical.
	ClassSpecial
)

// Classify classifies a version string per spec.md §3.
func Classify(v string) Class {
	if v == "" {
		return ClassEmpty
	}
	if strings.EqualFold(v, "latest") {
		return ClassLatest
	}
	if _, err := version.Parse(v); err == nil {
		return ClassSemantical
	}
	return ClassSpecial
}

// IsSpecial reports whether v is a special-labeled version (not empty,
// not latest, not semantical).
func IsSpecial(v string) bool { return Classify(v) == ClassSpecial }

// latestAsVersion is the sentinel "latest" is treated as when compared
// numerically: a Version whose major component is the maximum possible
// value, per spec.md §3 ("latest is treated as semantical with major = MAX").
func latestAsVersion() version.Version {
	v, err := version.Parse(fmt.Sprintf("%d", uint32(math.MaxUint32)))
	if err != nil {
		panic(err)
	}
	return v
}

// AsVersion returns the numeric Version a version string denotes for
// comparison purposes, and whether that conversion is meaningful
// (true for ClassLatest and ClassSemantical, false otherwise).
func AsVersion(v string) (version.Version, bool) {
	switch Classify(v) {
	case ClassLatest:
		return latestAsVersion(), true
	case ClassSemantical:
		ver, _ := version.Parse(v)
		return ver, true
	default:
		return version.Version{}, false
	}
}

// VersionComparator decides whether two version strings, as carried by
// two references, should be considered equal for Matches.
type VersionComparator func(a, b string) bool

// DefaultVersionComparator implements spec.md §4.B's default: both
// semantical (latest counts as semantical here) compare by semantical
// equality; both empty match; otherwise compare the raw strings
// case-insensitively, which also covers "both non-semantical" and
// naturally fails any other mismatched pairing.
func DefaultVersionComparator(a, b string) bool {
	ca, cb := Classify(a), Classify(b)
	if ca == ClassEmpty && cb == ClassEmpty {
		return true
	}

	aNumeric := ca == ClassSemantical || ca == ClassLatest
	bNumeric := cb == ClassSemantical || cb == ClassLatest
	if aNumeric && bNumeric {
		va, _ := AsVersion(a)
		vb, _ := AsVersion(b)
		return version.Equal(va, vb, version.PolicyZero)
	}

	return strings.EqualFold(a, b)
}

// Matches implements spec.md §4.B: names equal case-insensitively,
// repositories both absent or both present and equal, versions equal
// under cmp (nil selects DefaultVersionComparator).
func (p Partial) Matches(other Partial, cmp VersionComparator) bool {
	if cmp == nil {
		cmp = DefaultVersionComparator
	}

	if !strings.EqualFold(p.Name, other.Name) {
		return false
	}

	pHasRepo := p.RepositoryURL != ""
	oHasRepo := other.RepositoryURL != ""
	if pHasRepo != oHasRepo {
		return false
	}
	if pHasRepo && oHasRepo && !strings.EqualFold(p.RepositoryURL, other.RepositoryURL) {
		return false
	}

	return cmp(p.Version, other.Version)
}
