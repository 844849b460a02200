// Package buildinfo carries version details stamped in at link time, e.g.
//
//	go build -ldflags "-X github.com/Mudegi/YourBookSuit-sub007/internal/buildinfo.Version=v1.2.0"
package buildinfo

var (
	// Version will be set via ldflags during build.
	Version = "dev"
	// Commit will be set via ldflags during build.
	Commit = "none"
	// Date will be set via ldflags during build.
	Date = "unknown"
)
