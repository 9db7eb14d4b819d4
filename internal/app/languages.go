package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/lingodrop/internal/cli"
	"horse.fit/lingodrop/internal/translation"
)

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	registry := translation.NewRegistryFromEnv()
	options := translation.TranslationLanguageOptions(registry)

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"items":            options,
			"source_items":     translation.SourceLanguageOptions(registry),
			"providers":        registry.ProviderNames(),
			"default_provider": registry.DefaultProvider(),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print languages: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(options))
	for _, option := range options {
		rows = append(rows, []string{option.Code, option.Label, option.Native})
	}
	if err := writeTable([]string{"CODE", "LANGUAGE", "NATIVE"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print languages: %v\n", err)
		return 1
	}
	fmt.Printf("\nproviders: %v (default: %s)\n", registry.ProviderNames(), registry.DefaultProvider())
	return 0
}
