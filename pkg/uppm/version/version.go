// Package version implements uppm's scope-aware four-component version
// model (Major.Minor.Build.Revision) with explicit missing-component
// inference, per the resolver's requirement that "treat missing as X"
// never be a global setting.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// InferencePolicy controls how an absent version component is treated
// during comparison. It must be supplied explicitly at each comparison
// site; the zero value is PolicyZero.
type InferencePolicy int

const (
	// PolicyZero treats an absent component as its minimum value (0).
	PolicyZero InferencePolicy = iota
	// PolicyNewest treats an absent component as its maximum value,
	// so "highest version matching a partial prefix" queries work.
	PolicyNewest
)

const maxComponent uint32 = ^uint32(0)

var grammar = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.(\d+))?$`)

// ErrInvalidVersion is returned when a string does not match the
// Major[.Minor[.Build[.Revision]]] grammar.
var ErrInvalidVersion = errors.New("invalid version string")

// Version is a four-component version value. Components beyond the
// explicitly specified scope are absent until inference is applied by
// Compare or Components; the raw optionality is never read directly by
// comparisons.
type Version struct {
	major    uint32
	minor    uint32
	build    uint32
	revision uint32

	hasMinor    bool
	hasBuild    bool
	hasRevision bool
}

// Parse parses s against the version grammar. It fails with
// ErrInvalidVersion if s does not match.
func Parse(s string) (Version, error) {
	m := grammar.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q", s)
	}

	v := Version{}

	major, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: major component overflow", s)
	}
	v.major = uint32(major)

	if m[2] != "" {
		n, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: minor component overflow", s)
		}
		v.minor, v.hasMinor = uint32(n), true
	}
	if m[3] != "" {
		n, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: build component overflow", s)
		}
		v.build, v.hasBuild = uint32(n), true
	}
	if m[4] != "" {
		n, err := strconv.ParseUint(m[4], 10, 32)
		if err != nil {
			return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: revision component overflow", s)
		}
		v.revision, v.hasRevision = uint32(n), true
	}

	return v, nil
}

// MustParse is Parse but panics on error; intended for constants in
// tests and initialization code, never for user input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Scope returns the highest index (0 = major .. 3 = revision) of the
// component that was explicitly specified when this value was parsed.
func (v Version) Scope() int {
	switch {
	case v.hasRevision:
		return 3
	case v.hasBuild:
		return 2
	case v.hasMinor:
		return 1
	default:
		return 0
	}
}

// Components returns the four components of v with the given
// inference policy applied to every component beyond v.Scope().
// Comparisons must go through this (or Compare) and never read the raw
// optional fields directly.
func (v Version) Components(policy InferencePolicy) [4]uint32 {
	fill := func(has bool, val uint32) uint32 {
		if has {
			return val
		}
		if policy == PolicyNewest {
			return maxComponent
		}
		return 0
	}

	return [4]uint32{
		v.major,
		fill(v.hasMinor, v.minor),
		fill(v.hasBuild, v.build),
		fill(v.hasRevision, v.revision),
	}
}

// Compare applies policy to both a and b, then compares lexicographically
// over [major, minor, build, revision]. It returns -1, 0, or 1.
func Compare(a, b Version, policy InferencePolicy) int {
	ca := a.Components(policy)
	cb := b.Components(policy)

	for i := range ca {
		switch {
		case ca[i] < cb[i]:
			return -1
		case ca[i] > cb[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether a precedes b under policy.
func Less(a, b Version, policy InferencePolicy) bool {
	return Compare(a, b, policy) < 0
}

// Equal reports whether a and b denote the same version under policy.
// Note that equality under PolicyZero and PolicyNewest can disagree for
// versions with differing scope; callers wanting scope-aware matching
// should compare Scope() separately, as the resolver's inference rules
// do (spec.md §4.G).
func Equal(a, b Version, policy InferencePolicy) bool {
	return Compare(a, b, policy) == 0
}

// AgreesWithPrefix reports whether v agrees with prefix in every
// component up to and including prefix.Scope(), regardless of any
// components v specifies beyond that depth. This implements the
// scope-restricted matching rule used by reference inference: "2.3"
// agrees with "2.3.7" but not with "2.4.0".
func (v Version) AgreesWithPrefix(prefix Version) bool {
	vc := v.Components(PolicyZero)
	pc := prefix.Components(PolicyZero)

	for i := 0; i <= prefix.Scope(); i++ {
		if vc[i] != pc[i] {
			return false
		}
	}
	return true
}

// String renders v using only its explicitly specified components, so
// that Parse(v.String()) reproduces the same Scope().
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", v.major)
	if v.hasMinor {
		fmt.Fprintf(&b, ".%d", v.minor)
	}
	if v.hasBuild {
		fmt.Fprintf(&b, ".%d", v.build)
	}
	if v.hasRevision {
		fmt.Fprintf(&b, ".%d", v.revision)
	}
	return b.String()
}
