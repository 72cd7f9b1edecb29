// Package version provides the build version of the finbrief server.
package version

import "fmt"

var (
	// Version is the semantic version, set at build time via ldflags.
	Version = "0.3.0"
	// DevVersion is the version suffix used in dev mode.
	DevVersion = "dev"
)

func GetCurrentVersion(mode string) string {
	if mode == "prod" {
		return Version
	}
	return fmt.Sprintf("%s-%s", Version, DevVersion)
}
