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
	"horse.fit/lingodrop/internal/globaltime"
)

func runCleanup(args []string) int {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	olderThan := fs.Duration("older-than", 7*24*time.Hour, "Delete objects created more than this long ago")
	storeName := fs.String("store", "both", "Which store to clean: requests, responses or both")
	dryRun := fs.Bool("dry-run", false, "List matching objects without deleting them")
	timeout := fs.Duration("timeout", time.Minute, "Cleanup timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *olderThan <= 0 {
		fmt.Fprintln(os.Stderr, "older-than must be a positive duration")
		return 2
	}

	var cleanRequests, cleanResponses bool
	switch *storeName {
	case "requests":
		cleanRequests = true
	case "responses":
		cleanResponses = true
	case "both":
		cleanRequests = true
		cleanResponses = true
	default:
		fmt.Fprintf(os.Stderr, "Unknown store %q: use requests, responses or both\n", *storeName)
		return 2
	}

	_, stores, err := openStores(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		return 1
	}
	defer stores.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cutoff := globaltime.UTC().Add(-*olderThan)

	var scanned, deleted int
	var failed bool
	clean := func(name string, store blobstore.Store) {
		objects, err := store.List(ctx, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cleanup failed listing %s: %v\n", name, err)
			failed = true
			return
		}
		for _, obj := range objects {
			scanned++
			if !obj.CreatedAt.Before(cutoff) {
				continue
			}
			if *dryRun {
				fmt.Printf("would delete %s/%s (created %s)\n", name, obj.Key, obj.CreatedAt.Format(time.RFC3339))
				deleted++
				continue
			}
			if err := store.Delete(ctx, obj.Key); err != nil {
				if errors.Is(err, blobstore.ErrNotFound) {
					continue
				}
				fmt.Fprintf(os.Stderr, "Cleanup failed deleting %s/%s: %v\n", name, obj.Key, err)
				failed = true
				continue
			}
			deleted++
		}
	}

	if cleanRequests {
		clean(blobstore.NamespaceRequests, stores.Requests)
	}
	if cleanResponses {
		clean(blobstore.NamespaceResponses, stores.Responses)
	}

	verb := "deleted"
	if *dryRun {
		verb = "matched"
	}
	fmt.Printf("cleanup scanned=%d %s=%d older-than=%s dry-run=%t\n", scanned, verb, deleted, *olderThan, *dryRun)

	if failed {
		return 1
	}
	return 0
}
