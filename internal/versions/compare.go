package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// A development build (anything that does not parse as semver) is never newer than
// a release and is always older than one.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	switch {
	case errNew != nil:
		return false
	case errOld != nil:
		return true
	}
	return newSemver.GreaterThan(oldSemver)
}

// IsRelease reports whether version is a semver release without prerelease suffix
func IsRelease(version string) bool {
	v, err := semver.NewVersion(version)
	return err == nil && v.Prerelease() == ""
}
