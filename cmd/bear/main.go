// Package main is the entry point for the bear CLI.
package main

import (
	"os"

	"github.com/satishbabariya/bear/cmd/bear/commands"
	"github.com/satishbabariya/bear/internal/ui"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}
