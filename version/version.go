package version

// Version and Date are overridden at build time:
//
//	go build -ldflags "-X github.com/southsales/tolmap/version.Version=1.2.0 -X github.com/southsales/tolmap/version.Date=2025-01-01T00:00:00Z"
var (
	Version = "dev"
	Date    = ""
)
