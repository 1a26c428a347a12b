package version

import "fmt"

var (
	CLIName   = "swapsage"
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func Long() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", CLIName, Version, Commit, BuildDate)
}
