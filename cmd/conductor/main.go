// Command conductor schedules a decomposed task list across external
// executors, consolidates the results into a git commit, and journals the
// run for later inspection.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runCmd(os.Args[2:]))
	case "status":
		os.Exit(statusCmd(os.Args[2:]))
	case "help", "-h", "-help", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: conductor <command> [flags]

Commands:
  run     schedule a task file against a project workspace
  status  show the latest episode recorded in a workspace

Run "conductor <command> -h" for command flags.
`)
}
