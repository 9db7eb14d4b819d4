package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/lingodrop/internal/blobstore"
	"horse.fit/lingodrop/internal/config"
	"horse.fit/lingodrop/internal/globaltime"
	"horse.fit/lingodrop/internal/langdetect"
	"horse.fit/lingodrop/internal/language"
	"horse.fit/lingodrop/internal/translation"
	payloadschema "horse.fit/lingodrop/schema"
)

// Outcome reports what Process did with one request key.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
)

// RunStats summarizes one pending-request sweep.
type RunStats struct {
	Processed int
	Skipped   int
	Failed    int
}

// Options configure a Processor.
type Options struct {
	// KeyPattern selects which request keys to process (path.Match syntax).
	KeyPattern string
	// Workers bounds concurrent request processing.
	Workers int
	// FailurePolicy decides what happens when one text item fails: "fail"
	// writes nothing, "partial" records the failure per item and keeps going.
	FailurePolicy string
	// ResolveLanguage maps an "auto" source to a concrete code for one text.
	// Defaults to lingua-based detection.
	ResolveLanguage func(source, text string) string
}

// Processor turns stored translation requests into stored translation
// results. It is safe to run several processors against the same stores:
// results are written under the request's own key and existing results are
// never recomputed.
type Processor struct {
	requests  blobstore.Store
	responses blobstore.Store
	provider  translation.Provider
	logger    zerolog.Logger
	opts      Options
}

func New(requests, responses blobstore.Store, provider translation.Provider, logger zerolog.Logger, opts Options) *Processor {
	if strings.TrimSpace(opts.KeyPattern) == "" {
		opts.KeyPattern = "*.json"
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if strings.TrimSpace(strings.ToLower(opts.FailurePolicy)) == config.FailurePolicyPartial {
		opts.FailurePolicy = config.FailurePolicyPartial
	} else {
		opts.FailurePolicy = config.FailurePolicyFail
	}
	if opts.ResolveLanguage == nil {
		opts.ResolveLanguage = langdetect.Resolve
	}

	return &Processor{
		requests:  requests,
		responses: responses,
		provider:  provider,
		logger:    logger,
		opts:      opts,
	}
}

// Run watches the request namespace and processes every created object until
// ctx ends. The watch is established before the startup sweep so requests
// arriving in between are seen at least once; duplicates are absorbed by the
// existing-result check. Failures on individual requests are logged and do
// not stop the daemon.
func (p *Processor) Run(ctx context.Context) error {
	if p == nil || p.requests == nil || p.responses == nil || p.provider == nil {
		return fmt.Errorf("processor is not initialized")
	}

	events, err := p.requests.Watch(ctx, p.opts.KeyPattern)
	if err != nil {
		return fmt.Errorf("watch request store: %w", err)
	}

	p.logger.Info().
		Str("key_pattern", p.opts.KeyPattern).
		Int("workers", p.opts.Workers).
		Str("failure_policy", p.opts.FailurePolicy).
		Str("provider", p.provider.Name()).
		Msg("processor started")

	stats, err := p.ProcessPending(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("pending request sweep failed")
	} else if stats.Processed+stats.Failed+stats.Skipped > 0 {
		p.logger.Info().
			Int("processed", stats.Processed).
			Int("skipped", stats.Skipped).
			Int("failed", stats.Failed).
			Msg("pending requests swept")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Workers)

	for {
		select {
		case <-groupCtx.Done():
			_ = group.Wait()
			p.logger.Info().Msg("processor stopped")
			return nil
		case event, ok := <-events:
			if !ok {
				_ = group.Wait()
				p.logger.Info().Msg("processor stopped")
				return nil
			}
			key := event.Key
			group.Go(func() error {
				p.handle(groupCtx, key)
				return nil
			})
		}
	}
}

// ProcessPending translates every stored request that has no result yet.
func (p *Processor) ProcessPending(ctx context.Context) (RunStats, error) {
	var stats RunStats

	objects, err := p.requests.List(ctx, "")
	if err != nil {
		return stats, fmt.Errorf("list request store: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Workers)
	var mu sync.Mutex

	for _, object := range objects {
		matched, matchErr := path.Match(p.opts.KeyPattern, object.Key)
		if matchErr != nil || !matched {
			continue
		}
		key := object.Key
		group.Go(func() error {
			outcome, processErr := p.Process(groupCtx, key)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case processErr != nil:
				stats.Failed++
				p.logger.Error().Err(processErr).Str("key", key).Msg("request processing failed")
			case outcome == OutcomeSkipped:
				stats.Skipped++
			default:
				stats.Processed++
			}
			return nil
		})
	}

	_ = group.Wait()
	return stats, nil
}

// Process translates the request stored at key and writes the result under
// the same key in the response namespace. A request that already has a
// result is skipped, which makes duplicate watch deliveries harmless. A key
// without a stored request fails with blobstore.ErrNotFound so the caller
// can surface or retry it.
func (p *Processor) Process(ctx context.Context, key string) (Outcome, error) {
	exists, err := p.responses.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check existing result %q: %w", key, err)
	}
	if exists {
		return OutcomeSkipped, nil
	}

	raw, err := p.requests.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read request %q: %w", key, err)
	}

	request, err := payloadschema.ValidateTranslationRequestPayload(raw)
	if err != nil {
		return "", &MalformedInputError{Key: key, Reason: err}
	}

	result, err := p.translateRequest(ctx, key, request)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result %q: %w", key, err)
	}
	if err := p.responses.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("write result %q: %w", key, err)
	}

	return OutcomeProcessed, nil
}

func (p *Processor) handle(ctx context.Context, key string) {
	outcome, err := p.Process(ctx, key)
	if err != nil {
		p.logger.Error().Err(err).Str("key", key).Msg("request processing failed")
		return
	}
	if outcome == OutcomeSkipped {
		p.logger.Debug().Str("key", key).Msg("request already has a result")
		return
	}
	p.logger.Info().Str("key", key).Msg("request processed")
}

func (p *Processor) translateRequest(ctx context.Context, key string, request *payloadschema.TranslationRequest) (*payloadschema.TranslationResult, error) {
	sourceLang := language.NormalizeCode(request.SourceLanguage)
	targetLang := language.NormalizeCode(request.TargetLanguage)
	resolvedSource := sourceLang

	items := make([]payloadschema.TranslatedItem, 0, len(request.Texts))
	totalCharacters := 0
	attempted := 0
	failed := 0
	var firstFailureID int
	var firstFailureErr error

	for _, textItem := range request.Texts {
		// Blank texts pass through untranslated.
		if strings.TrimSpace(textItem.Text) == "" {
			items = append(items, payloadschema.TranslatedItem{
				ID:             textItem.ID,
				TranslatedText: textItem.Text,
				OriginalText:   textItem.Text,
			})
			continue
		}

		attempted++
		itemSource := sourceLang
		if isUnresolved(itemSource) {
			itemSource = p.opts.ResolveLanguage(sourceLang, textItem.Text)
		}

		characterCount := utf8.RuneCountInString(textItem.Text)
		resp, err := p.provider.Translate(ctx, translation.TranslateRequest{
			Text:       textItem.Text,
			SourceLang: itemSource,
			TargetLang: targetLang,
		})
		if err != nil {
			if p.opts.FailurePolicy == config.FailurePolicyFail {
				return nil, &TranslationFailureError{Key: key, ItemID: textItem.ID, Err: err}
			}
			failed++
			if firstFailureErr == nil {
				firstFailureID = textItem.ID
				firstFailureErr = err
			}
			items = append(items, payloadschema.TranslatedItem{
				ID:             textItem.ID,
				OriginalText:   textItem.Text,
				CharacterCount: characterCount,
				Status:         payloadschema.ItemStatusFailed,
				Error:          err.Error(),
			})
			p.logger.Warn().Err(err).Str("key", key).Int("item_id", textItem.ID).Msg("text item failed")
			continue
		}

		if isUnresolved(resolvedSource) {
			switch {
			case resp.SourceLang != "" && !isUnresolved(resp.SourceLang):
				resolvedSource = resp.SourceLang
			case !isUnresolved(itemSource):
				resolvedSource = itemSource
			}
		}

		totalCharacters += characterCount
		items = append(items, payloadschema.TranslatedItem{
			ID:             textItem.ID,
			TranslatedText: resp.Text,
			OriginalText:   textItem.Text,
			CharacterCount: characterCount,
		})
	}

	// A request whose items all failed produces no result under either policy.
	if attempted > 0 && failed == attempted {
		return nil, &TranslationFailureError{
			Key:    key,
			ItemID: firstFailureID,
			Err:    fmt.Errorf("all %d text items failed: %w", attempted, firstFailureErr),
		}
	}

	status := payloadschema.ProcessingStatusCompleted
	if failed > 0 {
		status = payloadschema.ProcessingStatusPartial
	}
	if resolvedSource == "" {
		resolvedSource = "auto"
	}

	return &payloadschema.TranslationResult{
		RequestID:      request.RequestID,
		SourceLanguage: resolvedSource,
		TargetLanguage: targetLang,
		Texts:          items,
		TranslationMetadata: payloadschema.TranslationMetadata{
			TotalTexts:       len(request.Texts),
			TotalCharacters:  totalCharacters,
			Timestamp:        globaltime.UTC().Format(time.RFC3339),
			ProcessingStatus: status,
		},
	}, nil
}

func isUnresolved(code string) bool {
	return code == "" || code == "auto"
}
