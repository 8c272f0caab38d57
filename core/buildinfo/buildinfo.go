package buildinfo

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/leadbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/leadbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/leadbot/core/buildinfo.Date=2026-10-01T12:00:00Z'
//
// Defaults apply to local runs.
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders version metadata for startup logs.
func String() string {
	if Date == "" {
		return Version + " (" + Commit + ")"
	}
	return Version + " (" + Commit + ", " + Date + ")"
}
