package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lingodrop/internal/client"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	api := fs.String("api", "http://127.0.0.1:8080", "Base URL of the lingodrop server")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "fetch requires exactly one request id argument")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	requestID := strings.TrimSpace(fs.Arg(0))
	if requestID == "" {
		fmt.Fprintln(os.Stderr, "request id must not be empty")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := client.New(*api).GetResult(ctx, requestID)
	if errors.Is(err, client.ErrNotReady) {
		fmt.Fprintf(os.Stderr, "Translation not ready for %s; try again shortly\n", requestID)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fetch failed: %v\n", err)
		return 1
	}

	if err := printResult(result, outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print result: %v\n", err)
		return 1
	}
	return 0
}
