// Package buildinfo holds version information injected at link time:
//
//	go build -ldflags "-X github.com/metaxime/pathview/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/metaxime/pathview/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/metaxime/pathview/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent is sent with every request to the prediction backend.
func UserAgent() string {
	return "pathview/" + Version
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
