// Package main provides the entry point for the codegraph CLI.
package main

import (
	"fmt"
	"os"

	"codegraph/cmd/codegraph/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
