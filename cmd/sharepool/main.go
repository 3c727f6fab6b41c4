// Command sharepool runs and inspects a share-based reward pool ledger
// stored in a local data directory.
package main

import (
	"os"

	"github.com/bitfsorg/sharepool-go/metrics"
)

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
