package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/lingodrop/internal/blobstore"
	"horse.fit/lingodrop/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Health check timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	cfg, stores, err := openStores(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer stores.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	type probe struct {
		Name  string `json:"name"`
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	probes := []probe{
		{Name: blobstore.NamespaceRequests},
		{Name: blobstore.NamespaceResponses},
	}
	// Exists never mutates the store, so probing is safe against live data.
	if _, err := stores.Requests.Exists(ctx, "health-probe.json"); err != nil {
		probes[0].Error = err.Error()
	} else {
		probes[0].OK = true
	}
	if _, err := stores.Responses.Exists(ctx, "health-probe.json"); err != nil {
		probes[1].Error = err.Error()
	} else {
		probes[1].OK = true
	}

	healthy := probes[0].OK && probes[1].OK

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"service": "lingodrop",
			"backend": cfg.StoreBackend,
			"healthy": healthy,
			"stores":  probes,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render health report: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(probes))
		for _, p := range probes {
			status := "ok"
			if !p.OK {
				status = "error: " + p.Error
			}
			rows = append(rows, []string{p.Name, status})
		}
		if err := writeTable([]string{"STORE", "STATUS"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render health report: %v\n", err)
			return 1
		}
		fmt.Printf("\nbackend: %s healthy: %t\n", cfg.StoreBackend, healthy)
	}

	if !healthy {
		return 1
	}
	return 0
}
