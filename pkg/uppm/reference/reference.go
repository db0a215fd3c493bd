// Package reference implements uppm's package-reference grammar: the
// partial/complete reference types, their text and URI forms, and the
// version-classification rules (latest/special/semantical) that the
// rest of the resolver relies on.
package reference

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/version"
)

// ErrInvalidReference is returned when a reference fails to parse
// against the text or URI grammar.
var ErrInvalidReference = errors.New("invalid reference")

var illegalComponentChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// Partial is a user-supplied reference with zero or more fields absent.
// It is a distinct type from Complete so the compiler enforces spec.md's
// "distinct types by contract" rule: a Partial can never be passed where
// a resolved Complete is required.
type Partial struct {
	Name          string
	Version       string // "" if absent
	RepositoryURL string // "" if absent
	TargetApp     string // "" if absent
}

// Complete is a reference whose Version and RepositoryURL are known to
// resolve against a specific repository's catalog.
type Complete struct {
	Name          string
	Version       string
	RepositoryURL string
	TargetApp     string
}

// ToPartial widens a Complete back into a Partial, e.g. to re-run
// inference or to compare against another Partial.
func (c Complete) ToPartial() Partial {
	return Partial{Name: c.Name, Version: c.Version, RepositoryURL: c.RepositoryURL, TargetApp: c.TargetApp}
}

// identityKey is the case-normalized (name, version, repository) triple
// that spec.md's §4.B calls "all three fields" for equality and hashing
// purposes; TargetApp is a routing hint, not part of reference identity.
type identityKey struct {
	name string
	vers string
	repo string
}

func normalize(name, vers, repo string) identityKey {
	return identityKey{
		name: strings.ToLower(name),
		vers: strings.ToLower(vers),
		repo: strings.ToLower(repo),
	}
}

// Key returns the case-normalized identity used for equality and for
// keying the repository catalog map.
func (p Partial) Key() identityKey { return normalize(p.Name, p.Version, p.RepositoryURL) }

// Key returns the case-normalized identity used for equality and for
// keying the repository catalog map.
func (c Complete) Key() identityKey { return normalize(c.Name, c.Version, c.RepositoryURL) }

// Equal reports case-insensitive equality over name, version, and
// repository URL.
func (p Partial) Equal(o Partial) bool { return p.Key() == o.Key() }

// Equal reports case-insensitive equality over name, version, and
// repository URL.
func (c Complete) Equal(o Complete) bool { return c.Key() == o.Key() }

// String renders the text form of a Partial reference.
func (p Partial) String() string {
	s := p.Name
	if p.Version != "" {
		s += ":" + p.Version
	}
	if p.RepositoryURL != "" {
		s += "@" + p.RepositoryURL
	}
	return s
}

// String renders the text form of a Complete reference.
func (c Complete) String() string {
	return c.Name + ":" + c.Version + "@" + c.RepositoryURL
}

func validateComponent(kind, s string) error {
	if strings.ContainsAny(s, ":@") {
		return errors.Wrapf(ErrInvalidReference, "%s %q contains a reserved delimiter", kind, s)
	}
	if illegalComponentChars.MatchString(s) {
		return errors.Wrapf(ErrInvalidReference, "%s %q contains a character illegal in file names", kind, s)
	}
	return nil
}

// ParseText parses the `name ( ':' version )? ( '@' repository )?` text
// grammar of spec.md §4.B into a Partial. Name and version may contain
// spaces but not ':', '@', or filename-illegal characters; repository
// is a URL and is not subject to that restriction.
func ParseText(s string) (Partial, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Partial{}, errors.Wrap(ErrInvalidReference, "empty reference")
	}

	rest := s
	var repo string
	if idx := strings.Index(rest, "@"); idx >= 0 {
		repo = strings.TrimSpace(rest[idx+1:])
		rest = rest[:idx]
	}

	name := rest
	var vers string
	if idx := strings.Index(rest, ":"); idx >= 0 {
		name = rest[:idx]
		vers = strings.TrimSpace(rest[idx+1:])
	}
	name = strings.TrimSpace(name)

	if name == "" {
		return Partial{}, errors.Wrap(ErrInvalidReference, "missing package name")
	}
	if err := validateComponent("name", name); err != nil {
		return Partial{}, err
	}
	if vers != "" {
		if err := validateComponent("version", vers); err != nil {
			return Partial{}, err
		}
	}

	return Partial{Name: name, Version: vers, RepositoryURL: repo}, nil
}

const uriScheme = "uppm-ref:"

// ParseURI parses the `uppm-ref:<target-app>/<text-form>` URI form. The
// input is URL-decoded before the text form is parsed. A missing
// `<target-app>/` prefix is an ErrInvalidReference.
func ParseURI(uri string) (Partial, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return Partial{}, errors.Wrapf(ErrInvalidReference, "missing %q scheme", uriScheme)
	}

	decoded, err := url.QueryUnescape(strings.TrimPrefix(uri, uriScheme))
	if err != nil {
		return Partial{}, errors.Wrap(err, "invalid percent-encoding in reference URI")
	}

	idx := strings.Index(decoded, "/")
	if idx <= 0 {
		return Partial{}, errors.Wrap(ErrInvalidReference, "missing required <target-app>/ prefix")
	}

	targetApp := decoded[:idx]
	partial, err := ParseText(decoded[idx+1:])
	if err != nil {
		return Partial{}, err
	}
	partial.TargetApp = targetApp
	return partial, nil
}
