package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"horse.fit/lingodrop/internal/blobstore"
	"horse.fit/lingodrop/internal/cli"
	"horse.fit/lingodrop/internal/config"
	payloadschema "horse.fit/lingodrop/schema"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func truncateForTable(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if maxLen <= 0 {
		return trimmed
	}
	if utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}

	runes := []rune(trimmed)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func printResult(result *payloadschema.TranslationResult, format string) error {
	if format == outputFormatJSON {
		return printJSON(result)
	}

	rows := make([][]string, 0, len(result.Texts))
	for _, item := range result.Texts {
		status := item.Status
		if status == "" {
			status = "ok"
		}
		translated := item.TranslatedText
		if item.Status == payloadschema.ItemStatusFailed {
			translated = item.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(item.ID),
			truncateForTable(item.OriginalText, 40),
			truncateForTable(translated, 60),
			status,
		})
	}
	if err := writeTable([]string{"ID", "ORIGINAL", "TRANSLATED", "STATUS"}, rows); err != nil {
		return err
	}

	meta := result.TranslationMetadata
	_, err := fmt.Printf("\n%s -> %s  texts=%d characters=%d status=%s\n",
		result.SourceLanguage, result.TargetLanguage,
		meta.TotalTexts, meta.TotalCharacters, meta.ProcessingStatus)
	return err
}

// openStores loads the environment and config, then opens the configured
// store backend within the given connect timeout.
func openStores(timeout time.Duration, envLoader *cli.EnvLoader) (*config.Config, *blobstore.Stores, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stores, err := blobstore.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store backend: %w", err)
	}
	return cfg, stores, nil
}
