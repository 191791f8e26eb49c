// Package main implements the addrsanitizer CLI tool.
//
// The addrsanitizer tool manages the Pure-Go AddressSanitizer runtime in
// a target project. Instrumented programs import the runtime package and
// route their memory and string operations through it; this tool wires
// the runtime dependency into a project's go.mod and prints the init
// boilerplate, so adopting the runtime is one command instead of a
// sequence of manual edits.
//
// Usage:
//
//	addrsanitizer link           # Add the runtime to the current module
//	addrsanitizer link -dir p    # Add the runtime to the module at p
//	addrsanitizer version        # Show version information
//
// This is the CLI entry point for the standalone tool.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "link":
		linkCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("addrsanitizer version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`addrsanitizer - Pure-Go AddressSanitizer Runtime Tool

USAGE:
    addrsanitizer <command> [arguments]

COMMANDS:
    link       Wire the sanitizer runtime into a project's go.mod
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Add the runtime dependency to the module in the current directory
    addrsanitizer link

    # Add it to a module elsewhere
    addrsanitizer link -dir ./services/worker

ABOUT:
    addrsanitizer provides runtime memory-safety checking for Go programs
    without CGO or a custom toolchain. Programs route their memory and
    string operations through the runtime package, which validates every
    access against poisoned-memory state before performing it.

    The runtime works with CGO_ENABLED=0, making it suitable for:
    - Docker containers
    - Cross-compilation
    - Embedded systems
    - Any environment where CGO is not available

FOR MORE INFORMATION:
    Repository: https://github.com/kolkov/addrsanitizer
    Documentation: https://github.com/kolkov/addrsanitizer/blob/main/README.md
    Issues: https://github.com/kolkov/addrsanitizer/issues

`)
}
