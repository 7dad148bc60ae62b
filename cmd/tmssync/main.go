package main

import (
	"tmssync/internal/cli"
	_ "tmssync/internal/tms/catalog"
	_ "tmssync/internal/tms/issues"
	_ "tmssync/internal/tms/sqlite"
)

// These variables are populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
