package signature

import (
	"fmt"

	semver "github.com/hashicorp/go-version"
)

// CheckVersion reports whether appVersion is within the bundle's version range.
// An empty bound is open.
func CheckVersion(appVersion string, b Bundle) (bool, error) {
	ver, err := semver.NewVersion(appVersion)
	if err != nil {
		return false, fmt.Errorf("failed to convert app version into semver object: %v", err)
	}
	if b.Version.Min != "" {
		minVer, err := semver.NewVersion(b.Version.Min)
		if err != nil {
			return false, fmt.Errorf("failed to convert signature min version into semver object: %v", err)
		}
		if ver.LessThan(minVer) {
			return false, nil
		}
	}
	if b.Version.Max != "" {
		maxVer, err := semver.NewVersion(b.Version.Max)
		if err != nil {
			return false, fmt.Errorf("failed to convert signature max version into semver object: %v", err)
		}
		if ver.GreaterThan(maxVer) {
			return false, nil
		}
	}
	return true, nil
}

// Validate checks that the version bounds parse and are ordered.
func (b *Bundle) Validate() error {
	var minVer, maxVer *semver.Version
	var err error
	if b.Version.Min != "" {
		if minVer, err = semver.NewVersion(b.Version.Min); err != nil {
			return fmt.Errorf("invalid min version %q: %v", b.Version.Min, err)
		}
	}
	if b.Version.Max != "" {
		if maxVer, err = semver.NewVersion(b.Version.Max); err != nil {
			return fmt.Errorf("invalid max version %q: %v", b.Version.Max, err)
		}
	}
	if minVer != nil && maxVer != nil && minVer.GreaterThan(maxVer) {
		return fmt.Errorf("min version %s is greater than max version %s", minVer, maxVer)
	}
	return nil
}

func truncate(in string, length int) string {
	if len(in) > length {
		return in[:length] + "..."
	}
	return in
}
