// Package version reports build information stamped at link time
package version

// BuildInfo describes one build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information
// set with -ldflags "-X github.com/linuxautomates/gitsei-sub026/internal/core/version.version=v0.1.0"
// and likewise for commit and date
func Info() BuildInfo {
	return BuildInfo{
		Service: "insights",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
