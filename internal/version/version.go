package version

// Version information set via ldflags at build time
var (
	Version   = "dev"     // -X 'github.com/burntop/burntop/internal/version.Version=...'
	GitCommit = "unknown" // -X 'github.com/burntop/burntop/internal/version.GitCommit=...'
	BuildDate = "unknown" // -X 'github.com/burntop/burntop/internal/version.BuildDate=...'
)
