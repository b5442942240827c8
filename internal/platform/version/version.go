// Package version holds the runtime name and build version.
package version

// Name is the runtime name reported to remote servers.
const Name = "fetchgate"

// Version is overridden at build time with
// -ldflags "-X github.com/MahdiBaghbani/fetchgate-go/internal/platform/version.Version=..."
var Version = "0.1.0-dev"

// UserAgent returns the identifying User-Agent value, e.g. "fetchgate 0.1.0".
func UserAgent() string {
	return Name + " " + Version
}
