// Package version reports the build's own version and compares it
// against the version stamped into manifests by earlier runs.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/carlmjohnson/versioninfo"
)

// String returns the tool version as embedded by the build, for example
// "v1.2.0" or a pseudo-version on untagged builds.
func String() string {
	return versioninfo.Short()
}

// Stamp is the created_by value written into manifests.
func Stamp() string {
	return "stackbak " + String()
}

// NewerMajor reports whether createdBy names a tool with a higher major
// version than ours, meaning the manifest may use fields this build does
// not understand. Unparseable stamps, including dev builds on either
// side, compare as compatible.
func NewerMajor(createdBy string) bool {
	theirs, ok := parseStamp(createdBy)
	if !ok {
		return false
	}
	ours, err := semver.NewVersion(strings.TrimPrefix(String(), "v"))
	if err != nil {
		return false
	}
	return theirs.Major() > ours.Major()
}

func parseStamp(stamp string) (*semver.Version, bool) {
	fields := strings.Fields(stamp)
	if len(fields) == 0 {
		return nil, false
	}
	raw := strings.TrimPrefix(fields[len(fields)-1], "v")
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Describe renders the long form shown by the version command.
func Describe() string {
	return fmt.Sprintf("stackbak %s (commit %s, built %s)",
		String(), versioninfo.Revision, versioninfo.LastCommit.Format("2006-01-02"))
}
