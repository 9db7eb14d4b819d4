package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "serve":
		return runServe(args[1:])
	case "work":
		return runWork(args[1:])
	case "submit":
		return runSubmit(args[1:])
	case "fetch":
		return runFetch(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "health":
		return runHealth(args[1:])
	case "cleanup":
		return runCleanup(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "lingodrop CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lingodrop <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API and upload page")
	fmt.Fprintln(os.Stderr, "  work       Run the translation processor until interrupted")
	fmt.Fprintln(os.Stderr, "  submit     Upload a translation request and poll for the result")
	fmt.Fprintln(os.Stderr, "  fetch      Fetch the result for a request id once")
	fmt.Fprintln(os.Stderr, "  translate  Translate text directly, bypassing the pipeline")
	fmt.Fprintln(os.Stderr, "  languages  List supported languages and providers")
	fmt.Fprintln(os.Stderr, "  validate   Validate translation request JSON files against the schema")
	fmt.Fprintln(os.Stderr, "  health     Verify store connectivity")
	fmt.Fprintln(os.Stderr, "  cleanup    Delete stored objects older than a cutoff")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"lingodrop <command> -h\" for command-specific flags.")
}
