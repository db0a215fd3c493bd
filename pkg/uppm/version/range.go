package version

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidRange is returned when a range expression cannot be parsed.
var ErrInvalidRange = errors.New("invalid version range")

// Range is a version interval with inclusive/exclusive bounds, following
// the bracket notation common to .NET-style version ranges: "[1.0,2.0)"
// is min-inclusive/max-exclusive, "(1.0,)" is a lower bound only,
// "[1.0]" is an exact match. A bare version with no brackets is treated
// as a minimum-inclusive, unbounded-above range, matching how bare
// versions behave in that same ecosystem.
type Range struct {
	min          *Version
	max          *Version
	minInclusive bool
	maxInclusive bool
}

// ParseRange parses expr into a Range. Bounds use the same grammar as
// Parse.
func ParseRange(expr string) (Range, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Range{}, errors.Wrap(ErrInvalidRange, "empty expression")
	}

	if expr[0] != '[' && expr[0] != '(' {
		v, err := Parse(expr)
		if err != nil {
			return Range{}, errors.Wrapf(ErrInvalidRange, "%q: %s", expr, err)
		}
		return Range{min: &v, minInclusive: true}, nil
	}

	if len(expr) < 2 {
		return Range{}, errors.Wrapf(ErrInvalidRange, "%q: too short", expr)
	}

	minInclusive := expr[0] == '['
	last := expr[len(expr)-1]
	if last != ']' && last != ')' {
		return Range{}, errors.Wrapf(ErrInvalidRange, "%q: unterminated bound", expr)
	}
	maxInclusive := last == ']'

	inner := expr[1 : len(expr)-1]
	parts := strings.SplitN(inner, ",", 2)

	r := Range{minInclusive: minInclusive, maxInclusive: maxInclusive}

	if len(parts) == 1 {
		// "[1.0]" exact-match form.
		v, err := Parse(strings.TrimSpace(parts[0]))
		if err != nil {
			return Range{}, errors.Wrapf(ErrInvalidRange, "%q: %s", expr, err)
		}
		r.min, r.max = &v, &v
		r.minInclusive, r.maxInclusive = true, true
		return r, nil
	}

	if lo := strings.TrimSpace(parts[0]); lo != "" {
		v, err := Parse(lo)
		if err != nil {
			return Range{}, errors.Wrapf(ErrInvalidRange, "%q: lower bound: %s", expr, err)
		}
		r.min = &v
	}
	if hi := strings.TrimSpace(parts[1]); hi != "" {
		v, err := Parse(hi)
		if err != nil {
			return Range{}, errors.Wrapf(ErrInvalidRange, "%q: upper bound: %s", expr, err)
		}
		r.max = &v
	}

	if r.min == nil && r.max == nil {
		return Range{}, errors.Wrapf(ErrInvalidRange, "%q: at least one bound is required", expr)
	}

	return r, nil
}

// Contains reports whether v lies inside r, comparing under
// PolicyZero (missing components treated as their minimum value).
func (r Range) Contains(v Version) bool {
	if r.min != nil {
		c := Compare(v, *r.min, PolicyZero)
		if c < 0 || (c == 0 && !r.minInclusive) {
			return false
		}
	}
	if r.max != nil {
		c := Compare(v, *r.max, PolicyZero)
		if c > 0 || (c == 0 && !r.maxInclusive) {
			return false
		}
	}
	return true
}

// IsInsideRange parses expr and reports whether v lies within it.
func (v Version) IsInsideRange(expr string) (bool, error) {
	r, err := ParseRange(expr)
	if err != nil {
		return false, err
	}
	return r.Contains(v), nil
}
