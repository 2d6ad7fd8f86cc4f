// Package cli implements the certbatch command line.
package cli

import (
	"fmt"
	"os"
)

var osExit = os.Exit

// Run dispatches to the subcommands.
func Run() {
	if len(os.Args) < 2 {
		Usage()
		return
	}

	switch os.Args[1] {
	case "generate":
		GenerateCommand()
	case "serve":
		ServeCommand()
	case "-h", "--help", "help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		Usage()
	}
}

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  generate  Generate a batch of signed certificates")
	fmt.Println("  serve     Run the batch generation server")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}
