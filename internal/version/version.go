// Package version holds build-time version information.
package version

// Populated at build time via -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "unknown"
)
