// Package version holds build metadata injected at link time.
//
//	go build -ldflags "-X github.com/ndewijer/Stock-Ledger-Backend/internal/version.Version=1.0.0" ./cmd/server
package version

// Version is the application version; "dev" for local builds.
var Version = "dev"
