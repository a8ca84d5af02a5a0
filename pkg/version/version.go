// Package version holds build version information.
package version

import "fmt"

var (
	// Version is the semantic version, set at build time.
	Version = "dev"

	// Commit is the git commit hash, set at build time.
	Commit = "unknown"
)

// UserAgent returns the HTTP user agent string for outbound requests.
func UserAgent() string {
	return fmt.Sprintf("price-oracle/%s", Version)
}

// String returns a human readable version string.
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
