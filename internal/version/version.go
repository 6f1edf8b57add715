// Package version exposes build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line description suitable for logs and the
// health endpoint, e.g. "dyno dev (unknown) built unknown".
func String() string {
	return fmt.Sprintf("dyno %s (%s) built %s", Version, GitSHA, BuildTime)
}
