// Package version holds the build-time version string for preflight.
package version

// Version is the semantic version of the running binary. Overridden at
// build time via -ldflags "-X github.com/Sumatoshi-tech/preflight/pkg/version.Version=...".
var Version = "dev"
