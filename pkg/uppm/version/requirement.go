package version

// CoreVersion is the version of the uppm core embedded in this binary.
// Packages declare a minimum core version in their metadata header
// (spec.md §4.C); this is what IncompatibleCore is checked against.
var CoreVersion = MustParse("1.0.0.0")

// Requirement pairs a minimum required core version with whether this
// build satisfies it.
type Requirement struct {
	MinVersion Version
	Compatible bool
}

// NewRequirement builds a Requirement against the running CoreVersion.
func NewRequirement(min Version) Requirement {
	return Requirement{
		MinVersion: min,
		Compatible: !Less(CoreVersion, min, PolicyZero),
	}
}
