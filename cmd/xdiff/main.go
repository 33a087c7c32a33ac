// Package main provides the entry point for the xdiff CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/xdiffgo/cmd/xdiff/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Differences and conflicts are results, not failures.
	if !errors.Is(err, commands.ErrDifferences) && !errors.Is(err, commands.ErrConflicts) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(commands.ExitCode(err))
}
