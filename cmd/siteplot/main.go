package main

import (
	"fmt"
	"os"

	"github.com/arvelo/siteplot/internal/tui"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "seed":
			if err := runSeed(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("siteplot " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := tui.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `siteplot - project address atlas

Usage:
  siteplot                Launch interactive TUI
  siteplot seed [flags]   Create a demo project database
  siteplot export [flags] Export a .db to CSV
  siteplot version        Show version

Run 'siteplot seed --help' or 'siteplot export --help' for flags.
`)
}
