// Package metadata locates and parses the uppm header comment embedded
// in a script file's text, grounded on the header-scanning approach of
// a plugin/theme-file-header parser: a regex anchored at the engine's
// comment delimiters, applied to the raw script text, with the payload
// handed to an HJSON decoder.
package metadata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/hjson/hjson-go/v4"
	"github.com/pkg/errors"

	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/version"
)

// ErrMalformedHeader is returned when the header regex does not match
// the script text at all.
var ErrMalformedHeader = errors.New("malformed uppm header")

// ErrIncompatibleCore is returned when the header declares a minimum
// core version newer than this build.
var ErrIncompatibleCore = errors.New("package requires a newer uppm core")

// ErrMalformedMetadata is returned when the HJSON payload parses but is
// missing required fields.
var ErrMalformedMetadata = errors.New("malformed package metadata")

// ErrIncompatibleTargetAppVersion is returned when the installed target
// app's version does not satisfy a package's CompatibleAppVersion
// constraint.
var ErrIncompatibleTargetAppVersion = errors.New("package is incompatible with the installed target app version")

// Delimiters describes the comment-opening and comment-closing tokens
// an engine uses to wrap its header, e.g. "/*"/"*/" or "<#"/"#>".
type Delimiters struct {
	Open  string
	Close string
}

// Meta is the parsed content of a package's embedded header, combined
// with the identifying fields inferred from the reference that
// resolved it.
type Meta struct {
	Name                 string
	Version              string
	TargetApp            string
	CompatibleAppVersion string
	RequiredCoreVersion  version.Requirement
	Author               string
	License              string
	ProjectURL           string
	Repository           string
	Description          string
	Homepage             string
	Tags                 []string
	ForceGlobal          bool

	Dependencies []reference.Partial
	Imports      []reference.Partial

	Self reference.Complete

	RawText    string
	ScriptText string
	MetaObject map[string]interface{}
}

// headerPattern builds the `<open> \s+ uppm \s+ <min-core-version> \s+
// <hjson-object> \s* <close>` regex from spec.md §4.C, in single-line
// dot-all mode so the HJSON object (itself multi-line) is captured
// whole.
func headerPattern(d Delimiters) *regexp.Regexp {
	pattern := fmt.Sprintf(
		`(?s)%s\s+uppm\s+(\S+)\s+(\{.*?\})\s*%s`,
		regexp.QuoteMeta(d.Open),
		regexp.QuoteMeta(d.Close),
	)
	return regexp.MustCompile(pattern)
}

// Extract locates the header comment in text using d's delimiters,
// decodes its HJSON payload, and validates the minimum-core-version and
// required-field constraints of spec.md §4.C. complete identifies the
// reference that produced text, and becomes meta.Self on success.
func Extract(text string, d Delimiters, complete reference.Complete) (Meta, error) {
	re := headerPattern(d)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Meta{}, errors.Wrapf(ErrMalformedHeader, "no %q ... %q uppm header found", d.Open, d.Close)
	}

	minCoreStr, hjsonBlock := m[1], m[2]

	minCore, err := version.Parse(minCoreStr)
	if err != nil {
		return Meta{}, errors.Wrapf(ErrMalformedHeader, "invalid min-core-version %q", minCoreStr)
	}
	req := version.NewRequirement(minCore)

	var obj map[string]interface{}
	if err := hjson.Unmarshal([]byte(hjsonBlock), &obj); err != nil {
		return Meta{}, errors.Wrap(ErrMalformedHeader, err.Error())
	}

	if !req.Compatible {
		return Meta{}, errors.Wrapf(ErrIncompatibleCore, "requires core >= %s, have %s", minCore, version.CoreVersion)
	}

	name, _ := obj["name"].(string)
	ver, _ := obj["version"].(string)
	if name == "" || ver == "" {
		return Meta{}, errors.Wrap(ErrMalformedMetadata, `"name" and "version" are required`)
	}

	meta := Meta{
		Name:                name,
		Version:             ver,
		RequiredCoreVersion: req,
		RawText:             m[0],
		ScriptText:          text,
		MetaObject:          obj,
	}

	meta.TargetApp, _ = obj["targetApp"].(string)
	meta.CompatibleAppVersion, _ = obj["compatibleAppVersion"].(string)
	meta.Author, _ = obj["author"].(string)
	meta.License, _ = obj["license"].(string)
	meta.ProjectURL, _ = obj["projectUrl"].(string)
	meta.Repository, _ = obj["repository"].(string)
	meta.Description, _ = obj["description"].(string)
	meta.Homepage, _ = obj["homepage"].(string)
	meta.ForceGlobal, _ = obj["forceGlobal"].(bool)
	meta.Tags = stringSlice(obj["tags"])

	meta.Dependencies = parseRefs(obj["dependencies"])
	meta.Imports = parseRefs(obj["imports"])

	// meta.version is overwritten with complete.Version by the loader
	// (spec.md §4.I step 5); Self is keyed on the three identifying
	// fields, invariant-checked to match meta.Name/Version/Repository.
	meta.Version = complete.Version
	meta.Self = reference.Complete{
		Name:          meta.Name,
		Version:       meta.Version,
		RepositoryURL: complete.RepositoryURL,
	}
	meta.Repository = complete.RepositoryURL

	return meta, nil
}

func stringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseRefs(v interface{}) []reference.Partial {
	strs := stringSlice(v)
	out := make([]reference.Partial, 0, len(strs))
	for _, s := range strs {
		p, err := reference.ParseText(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MarshalMetaObject re-encodes the raw metadata object as canonical
// JSON, useful for logging and the `why` command's diagnostic output.
func MarshalMetaObject(m Meta) ([]byte, error) {
	return json.Marshal(m.MetaObject)
}

// CompatibleWithAppVersion reports whether appVersion satisfies
// constraint, a SemVer constraint string (e.g. ">=1.2.0 <2.0.0"),
// mirroring the teacher's validator.IsValidConstraint/ValidateRequires
// pattern for a host-version requirement (there, requires.wp/
// requires.php; here, compatibleAppVersion). A blank constraint or a
// blank appVersion is always compatible — the check only applies when
// both the package and the installed target app declare a version.
func CompatibleWithAppVersion(constraint, appVersion string) (bool, error) {
	if constraint == "" || appVersion == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, errors.Wrapf(ErrMalformedMetadata, "compatibleAppVersion %q: %s", constraint, err)
	}
	v, err := semver.NewVersion(appVersion)
	if err != nil {
		return false, errors.Wrapf(ErrMalformedMetadata, "target app version %q: %s", appVersion, err)
	}
	return c.Check(v), nil
}
