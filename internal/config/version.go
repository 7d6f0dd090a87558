package config

import "fmt"

// CurrentVersion is the config file version this build reads.
const CurrentVersion = 1

// Reasons reported by VersionError.
const (
	reasonMissing = "missing or outdated"
	reasonOld     = "outdated"
	reasonNewer   = "newer than this build"
)

// VersionError reports a config file written for another version.
type VersionError struct {
	Version int
	Current int
	Reason  string
}

func (e *VersionError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case "":
		return fmt.Sprintf("config version %d is unsupported (current: %d)", e.Version, e.Current)
	case reasonNewer:
		return fmt.Sprintf("config version %d is %s (current: %d); upgrade yamldoctor to continue", e.Version, e.Reason, e.Current)
	default:
		return fmt.Sprintf("config version %d is %s (current: %d); set version: %d", e.Version, e.Reason, e.Current, e.Current)
	}
}

// ValidateVersion rejects versions other than CurrentVersion. The loader
// fills in CurrentVersion for files without a version key, so 0 here means
// it was written explicitly.
func ValidateVersion(version int) error {
	reason := ""
	switch {
	case version == CurrentVersion:
		return nil
	case version <= 0:
		reason = reasonMissing
	case version < CurrentVersion:
		reason = reasonOld
	default:
		reason = reasonNewer
	}
	return &VersionError{Version: version, Current: CurrentVersion, Reason: reason}
}
