package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lingodrop/internal/cli"
	"horse.fit/lingodrop/internal/langdetect"
	"horse.fit/lingodrop/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	source := fs.String("source", "auto", "Source language code, or auto to detect")
	target := fs.String("target", "", "Target language code")
	providerName := fs.String("provider", "", "Translation provider name (defaults to TRANSLATION_PROVIDER)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "translate requires exactly one text argument")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if strings.TrimSpace(*target) == "" {
		fmt.Fprintln(os.Stderr, "--target is required")
		return 2
	}
	text := strings.TrimSpace(fs.Arg(0))
	if text == "" {
		fmt.Fprintln(os.Stderr, "text must not be empty")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	registry := translation.NewRegistryFromEnv()
	provider, err := registry.Provider(*providerName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := provider.Translate(ctx, translation.TranslateRequest{
		Text:       text,
		SourceLang: langdetect.Resolve(*source, text),
		TargetLang: strings.TrimSpace(*target),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"provider":        resp.ProviderName,
			"source_language": resp.SourceLang,
			"target_language": resp.TargetLang,
			"text":            text,
			"translated_text": resp.Text,
			"latency_ms":      resp.LatencyMs,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print result: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Println(resp.Text)
	return 0
}
