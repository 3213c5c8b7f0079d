package version

// Overridden at build time via -ldflags.
var (
	Version     = "dev"
	BuildDate   = ""
	GitCommit   = ""
	FullVersion = Version
)
