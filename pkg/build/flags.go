// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X sonify/pkg/build.buildName=sonify \
//	  -X sonify/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X sonify/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X sonify/pkg/build.buildVersion=0.1.0"
//
// Development builds carry no ldflags and report the defaults below.
package build

import "fmt"

// Description is the one-line summary shown in command help.
const Description = "Play an image as sound and paint what the microphone hears back onto it"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the build information for `version` output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var buildFlags = defaultFlags()

func defaultFlags() *ldFlags {
	return &ldFlags{Name: "sonify", Time: "unknown", Commit: "unknown", Version: "dev"}
}

// Initialize copies the linker-provided values into the build information.
// It fails, leaving the defaults in place, unless every value was provided.
func Initialize() error {
	required := []struct {
		flag  string
		value string
	}{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.flag)
		}
	}

	*buildFlags = ldFlags{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
