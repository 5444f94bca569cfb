// Package version exposes build metadata for startup logging. Values
// are overridden via ldflags by the release build.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
