package version

import (
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	version = ""
	commit  = ""
	dirty   = false
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "" && len(setting.Value) >= 7 {
				commit = setting.Value[:7]
			}
		case "vcs.modified":
			dirty = dirty || setting.Value == "true"
		}
	}
}

// current returns the version of the binary. Builds from a commit or a
// modified tree report the next minor version, as they come after the
// released one.
func current() (*semver.Version, bool) {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return nil, false
	}
	if commit != "" || dirty {
		next := v.IncMinor()
		v = &next
	}
	return v, true
}

// GetVersion returns the version in the form shown by --version.
func GetVersion() string {
	v, ok := current()
	if !ok {
		return "unknown"
	}
	return v.String()
}

// GetVersionWithBuildInfo is GetVersion with the commit and the state of the
// working tree as build metadata.
func GetVersionWithBuildInfo() string {
	v, ok := current()
	if !ok {
		return "unknown"
	}
	var metadata []string
	if commit != "" {
		metadata = append(metadata, commit)
	}
	if dirty {
		metadata = append(metadata, "dirty")
	}
	if len(metadata) > 0 {
		withMeta, err := v.SetMetadata(strings.Join(metadata, "."))
		if err == nil {
			v = &withMeta
		}
	}
	return v.String()
}
