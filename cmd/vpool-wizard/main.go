// vpool-wizard - storage pool provisioning wizard for Open vStorage.
package main

import (
	"os"

	"github.com/openvstorage/vpool-wizard/internal/cli"
	"github.com/openvstorage/vpool-wizard/internal/version"
)

// Version information - release builds inject the real values via ldflags,
// these are the fallbacks for plain `go build` invocations.
var (
	Version   = "v1.2.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
