package resolver

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/version"
)

// reconcileInstalled implements spec.md §4.J's phase-1 decision table:
// reconcile a requested dependency reference against whatever the
// current target app already has installed in pkg's effective scope.
// It returns the reference to load next and whether the dependency
// should be skipped entirely (already satisfied, nothing to build).
func (r *Resolver) reconcileInstalled(pkg *Package, requested reference.Partial) (ref reference.Partial, skip bool) {
	installed, ok := pkg.TargetApp.TryGetInstalledPackage(requested, pkg.Scope, r.Engines)
	if !ok {
		return requested, false
	}
	installedRef := installed.Ref.ToPartial()

	// installed version string equals requested exactly: Skip.
	if strings.EqualFold(installedRef.Version, requested.Version) {
		return requested, true
	}

	instClass := reference.Classify(installedRef.Version)
	reqClass := reference.Classify(requested.Version)

	// both are special and differ: Skip, log conflict.
	if instClass == reference.ClassSpecial && reqClass == reference.ClassSpecial {
		logrus.Warnf("uppm: resolver: %s: installed %q and requested %q are both special labels and differ", requested.Name, installedRef.Version, requested.Version)
		return requested, true
	}

	// installed is latest and requested is not special: ask; yes adopts
	// installed, no skips.
	if instClass == reference.ClassLatest && reqClass != reference.ClassSpecial {
		if r.confirm(fmt.Sprintf("%s is installed at latest; keep it instead of the requested version %s?", requested.Name, requested.Version)) {
			return installedRef, false
		}
		return requested, true
	}

	if instClass == reference.ClassSemantical && reqClass == reference.ClassSemantical {
		instVer, _ := reference.AsVersion(installedRef.Version)
		reqVer, _ := reference.AsVersion(requested.Version)

		// both semantical, equal: Skip.
		if version.Equal(instVer, reqVer, version.PolicyZero) {
			return requested, true
		}

		// both semantical, requested > installed: ask; yes updates to the
		// requested version, no skips (keep what's installed).
		if version.Less(instVer, reqVer, version.PolicyZero) {
			if r.confirm(fmt.Sprintf("update %s from installed %s to requested %s?", requested.Name, installedRef.Version, requested.Version)) {
				return requested, false
			}
			return requested, true
		}

		// both semantical, installed.major > requested.major: Skip and log.
		instComponents := instVer.Components(version.PolicyZero)
		reqComponents := reqVer.Components(version.PolicyZero)
		if instComponents[0] > reqComponents[0] {
			logrus.Warnf("uppm: resolver: %s: installed major version %d is newer than requested major version %d", requested.Name, instComponents[0], reqComponents[0])
			return requested, true
		}

		// both semantical, installed has broader scope than requested: ask;
		// yes adopts installed, no skips.
		if instVer.Scope() < reqVer.Scope() {
			if r.confirm(fmt.Sprintf("%s is installed at the broader version %s; keep it instead of the more specific %s?", requested.Name, installedRef.Version, requested.Version)) {
				return installedRef, false
			}
			return requested, true
		}

		// both semantical, same major, installed > requested: ask; yes
		// keeps installed, no skips (default "no" under unattended mode
		// keeps installed and loads nothing new).
		if instComponents[0] == reqComponents[0] && instVer.Scope() >= reqVer.Scope() {
			if r.confirm(fmt.Sprintf("%s is installed at the newer version %s than requested %s; keep it installed?", requested.Name, installedRef.Version, requested.Version)) {
				return installedRef, false
			}
			return requested, true
		}
	}

	// otherwise: update with the requested input.
	return requested, false
}

// confirm consults r.Confirm, or r.DefaultAnswer when unattended or
// when no collaborator was wired in.
func (r *Resolver) confirm(prompt string) bool {
	if r.Unattended || r.Confirm == nil {
		return r.DefaultAnswer
	}
	return r.Confirm(prompt)
}
