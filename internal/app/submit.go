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

	"github.com/google/uuid"

	"horse.fit/lingodrop/internal/client"
	"horse.fit/lingodrop/internal/reader"
	payloadschema "horse.fit/lingodrop/schema"
)

func runSubmit(args []string) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	api := fs.String("api", "http://127.0.0.1:8080", "Base URL of the lingodrop server")
	text := fs.String("text", "", "Text to translate")
	file := fs.String("file", "", "Read the text to translate from this file")
	pageURL := fs.String("url", "", "Extract readable text from this URL and translate it")
	source := fs.String("source", "auto", "Source language code, or auto to detect per text")
	target := fs.String("target", "", "Target language code")
	id := fs.String("id", "", "Request id (generated when empty)")
	interval := fs.Duration("interval", client.DefaultPollInterval, "Result poll interval")
	timeout := fs.Duration("timeout", client.DefaultMaxDuration, "Give up polling after this long")
	noWait := fs.Bool("no-wait", false, "Upload only; fetch the result later with fetch")
	maxChars := fs.Int("max-chars", 12000, "Clip extracted URL text to this many characters (0 = no limit)")
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
	if strings.TrimSpace(*target) == "" {
		fmt.Fprintln(os.Stderr, "--target is required")
		return 2
	}

	inputs := 0
	for _, value := range []string{*text, *file, *pageURL} {
		if strings.TrimSpace(value) != "" {
			inputs++
		}
	}
	if inputs != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of --text, --file, or --url is required")
		return 2
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

	items, err := collectTextItems(ctx, *text, *file, *pageURL, *maxChars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare text: %v\n", err)
		return 1
	}

	requestID := strings.TrimSpace(*id)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	fmt.Printf("request_id: %s\n", requestID)

	apiClient := client.New(*api)
	req := client.UploadRequest{
		RequestID:      requestID,
		SourceLanguage: strings.TrimSpace(*source),
		TargetLanguage: strings.TrimSpace(*target),
		Texts:          items,
		ClientInfo:     map[string]any{"client_type": "cli", "version": "1.0"},
	}

	if *noWait {
		key, err := apiClient.Upload(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
			return 1
		}
		fmt.Printf("uploaded key=%s; fetch the result with: lingodrop fetch %s\n", key, requestID)
		return 0
	}

	workflow := client.NewWorkflow(apiClient, client.WorkflowOptions{
		PollInterval: *interval,
		MaxDuration:  *timeout,
	})

	result, err := workflow.Run(ctx, req)
	if err != nil {
		var validationErr *client.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Fprintln(os.Stderr, validationErr)
			return 2
		}
		if errors.Is(err, client.ErrTimedOut) {
			fmt.Fprintf(os.Stderr, "Timed out after %s; fetch later with: lingodrop fetch %s\n", *timeout, requestID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Submit failed: %v\n", err)
		return 1
	}

	if err := printResult(result, outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print result: %v\n", err)
		return 1
	}
	return 0
}

// collectTextItems builds the text items for one submission. Plain text and
// files become a single item; URL extractions are split per paragraph so
// long pages translate as separately tracked segments.
func collectTextItems(ctx context.Context, text, file, pageURL string, maxChars int) ([]payloadschema.TextItem, error) {
	switch {
	case strings.TrimSpace(text) != "":
		return []payloadschema.TextItem{{ID: 1, Text: strings.TrimSpace(text)}}, nil

	case strings.TrimSpace(file) != "":
		raw, err := os.ReadFile(strings.TrimSpace(file))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		content := strings.TrimSpace(string(raw))
		if content == "" {
			return nil, fmt.Errorf("%s is empty", file)
		}
		return []payloadschema.TextItem{{ID: 1, Text: content}}, nil

	default:
		extracted, err := reader.FetchText(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", pageURL, err)
		}
		clipped, truncated := reader.TruncateText(extracted, maxChars)
		if truncated {
			fmt.Fprintf(os.Stderr, "Warning: extracted text clipped to %d characters\n", maxChars)
		}
		paragraphs := reader.SplitParagraphs(clipped)
		if len(paragraphs) == 0 {
			return nil, fmt.Errorf("no readable text found at %s", pageURL)
		}
		items := make([]payloadschema.TextItem, 0, len(paragraphs))
		for i, paragraph := range paragraphs {
			items = append(items, payloadschema.TextItem{ID: i + 1, Text: paragraph})
		}
		return items, nil
	}
}
