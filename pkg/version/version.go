package version

// These are set at build time via -ldflags.
var (
	// Version is the version of kcal, e.g. v0.3.0. It includes a leading v.
	Version = "dev"
	// GitCommit is the git commit hash kcal was built from.
	GitCommit = "unknown"
)
