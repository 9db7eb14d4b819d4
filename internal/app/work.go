package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/lingodrop/internal/cli"
	"horse.fit/lingodrop/internal/config"
	"horse.fit/lingodrop/internal/logging"
	"horse.fit/lingodrop/internal/processor"
	"horse.fit/lingodrop/internal/translation"
)

func runWork(args []string) int {
	fs := flag.NewFlagSet("work", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	providerName := fs.String("provider", "", "Translation provider name (defaults to TRANSLATION_PROVIDER)")
	once := fs.Bool("once", false, "Process pending requests and exit instead of watching")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, stores, err := openStores(10*time.Second, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer stores.Close()

	if strings.EqualFold(strings.TrimSpace(cfg.StoreBackend), config.BackendMemory) {
		fmt.Fprintln(os.Stderr, "STORE_BACKEND=memory only exists inside one process; use `serve -with-worker` instead")
		return 2
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	registry := translation.NewRegistryFromEnv()
	provider, err := registry.Provider(*providerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve translation provider: %v\n", err)
		return 1
	}

	proc := processor.New(stores.Requests, stores.Responses, wrapProvider(cfg, provider), logger, processor.Options{
		KeyPattern:    cfg.KeyPattern,
		Workers:       cfg.WorkerCount,
		FailurePolicy: cfg.FailurePolicy,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	if *once {
		stats, err := proc.ProcessPending(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("pending sweep failed")
			fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
			return 1
		}
		fmt.Printf("work processed=%d skipped=%d failed=%d\n", stats.Processed, stats.Skipped, stats.Failed)
		if stats.Failed > 0 {
			return 1
		}
		return 0
	}

	if err := proc.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("processor failed")
		fmt.Fprintf(os.Stderr, "Processor failed: %v\n", err)
		return 1
	}
	return 0
}

// wrapProvider layers the configured resilience wrappers around a provider:
// rate limiting innermost, then the circuit breaker, then retries, so one
// user-visible attempt consumes limiter tokens per retry and the breaker
// sees every raw failure.
func wrapProvider(cfg *config.Config, provider translation.Provider) translation.Provider {
	wrapped := provider
	if cfg.ProviderRateLimit > 0 {
		wrapped = translation.WithRateLimit(wrapped, cfg.ProviderRateLimit, cfg.ProviderRateBurst)
	}
	if cfg.ProviderBreaker {
		wrapped = translation.WithBreaker(wrapped)
	}
	if cfg.ProviderRetries > 0 {
		wrapped = translation.WithRetry(wrapped, cfg.ProviderRetries, cfg.ProviderRetryBackoff)
	}
	return wrapped
}
