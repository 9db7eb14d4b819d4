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

	"golang.org/x/sync/errgroup"

	"horse.fit/lingodrop/internal/cli"
	"horse.fit/lingodrop/internal/config"
	"horse.fit/lingodrop/internal/httpapi"
	"horse.fit/lingodrop/internal/logging"
	"horse.fit/lingodrop/internal/processor"
	"horse.fit/lingodrop/internal/translation"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8080, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	withWorker := fs.Bool("with-worker", false, "Run the translation processor inside this process")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, stores, err := openStores(10*time.Second, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer stores.Close()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	runWorker := *withWorker
	if !runWorker && strings.EqualFold(strings.TrimSpace(cfg.StoreBackend), config.BackendMemory) {
		// A separate work process cannot see this process's memory store, so
		// the processor has to live here.
		runWorker = true
		logger.Info().Msg("memory store backend selected, running the processor in-process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	registry := translation.NewRegistryFromEnv()

	srv := httpapi.NewServer(stores.Requests, stores.Responses, registry, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if runWorker {
		provider, err := registry.Provider("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve translation provider: %v\n", err)
			return 1
		}
		proc := processor.New(stores.Requests, stores.Responses, wrapProvider(cfg, provider), logger, processor.Options{
			KeyPattern:    cfg.KeyPattern,
			Workers:       cfg.WorkerCount,
			FailurePolicy: cfg.FailurePolicy,
		})
		g.Go(func() error {
			return proc.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("serve failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}
	return 0
}
