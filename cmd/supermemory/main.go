package main

import (
	"fmt"
	"os"

	app "github.com/gracie007-cloud/claude-supermemory/internal"
	"github.com/gracie007-cloud/claude-supermemory/internal/cli"
)

// Set by ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	stateDir := app.ResolveStateDir()

	a, err := app.NewApp(stateDir, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing supermemory: %v\n", err)
		os.Exit(1)
	}

	err = cli.Execute()
	_ = a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
