// Package version exposes the program version stamped into cached records.
//
// Release builds override Version with
//
//	go build -ldflags "-X projtrace/internal/version.Version=1.4.0"
package version

// Version identifies the build. Cached projection records written by a
// different version are discarded on load.
var Version = "1.0.0"

// Current returns the active program version.
func Current() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
