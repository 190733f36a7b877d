package version

// Version information set at build time via ldflags
var (
	// Version is the semantic version of the build
	Version = "v0.1.0"
	// Commit is the git revision the binary was built from
	Commit = ""
)

// GetVersion returns the version string, with the commit when known
func GetVersion() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
