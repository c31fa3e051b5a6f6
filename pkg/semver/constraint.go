// Package semver checks provider versions against configured constraints.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:constraint"

var (
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// IsMajorOnly checks if a constraint is a major-only specifier (e.g., "3").
func IsMajorOnly(s string) bool {
	return majorOnlyRegex.MatchString(s)
}

// IsExactVersion checks if a constraint is a bare version (e.g., "3.2.1").
func IsExactVersion(s string) bool {
	return exactVersionRegex.MatchString(s)
}

// NormalizeConstraint turns the configuration shorthand into a constraint
// expression:
//   - "2"      -> "^2"        (any 2.x)
//   - "1.4.0"  -> ">=1.4.0"  (minimum version)
//   - anything else is used as written ("^1.4", ">=1.0 <3", "~2.1")
func NormalizeConstraint(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case IsMajorOnly(s):
		return "^" + s
	case IsExactVersion(s):
		return ">=" + s
	}
	return s
}

// VersionError reports a provider whose version does not satisfy its constraint.
type VersionError struct {
	Provider   string
	Constraint string
	Version    string
	Reason     string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s - provider %s version %q does not satisfy %q: %s",
		logPrefix, e.Provider, e.Version, e.Constraint, e.Reason)
}

// CheckParams holds parameters for CheckProviderVersion.
type CheckParams struct {
	Provider   string
	Constraint string
	Version    string
}

// CheckProviderVersion verifies the version a provider reported at initialize
// against its configured minimum. An empty constraint always passes.
func CheckProviderVersion(params CheckParams) error {
	if strings.TrimSpace(params.Constraint) == "" {
		return nil
	}
	verr := &VersionError{Provider: params.Provider, Constraint: params.Constraint, Version: params.Version}

	constraint, err := masterminds.NewConstraint(NormalizeConstraint(params.Constraint))
	if err != nil {
		verr.Reason = "invalid constraint: " + err.Error()
		return verr
	}
	if params.Version == "" {
		verr.Reason = "provider reported no version"
		return verr
	}
	v, err := masterminds.NewVersion(params.Version)
	if err != nil {
		verr.Reason = "unparseable version: " + err.Error()
		return verr
	}
	if ok, errs := constraint.Validate(v); !ok {
		verr.Reason = "constraint not met"
		if len(errs) > 0 {
			verr.Reason = errs[0].Error()
		}
		return verr
	}
	return nil
}
