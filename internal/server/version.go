package server

import "fmt"

// Build information, set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// VersionString returns the build information on one line.
func VersionString() string {
	return fmt.Sprintf("dremio-simplejson version %s (commit %s, built %s)", Version, Commit, Date)
}
