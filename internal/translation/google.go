package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleProvider translates text through the Google Cloud Translation API.
// The API client is created lazily on first use so the registry can be built
// without credentials present.
type GoogleProvider struct {
	credentialsFile string

	mu     sync.Mutex
	client *translate.Client
}

// NewGoogleProviderFromEnv builds a Google provider from env vars.
//   - GOOGLE_CREDENTIALS_FILE (optional; falls back to application default credentials)
func NewGoogleProviderFromEnv() *GoogleProvider {
	return NewGoogleProvider(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
}

func NewGoogleProvider(credentialsFile string) *GoogleProvider {
	return &GoogleProvider{credentialsFile: strings.TrimSpace(credentialsFile)}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *GoogleProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("google provider is nil")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}
	targetTag, err := language.Parse(targetLang)
	if err != nil {
		return nil, &UnsupportedPairError{Provider: p.Name(), SourceLang: req.SourceLang, TargetLang: req.TargetLang}
	}

	// Leaving Source unset lets the API detect the source language.
	opts := &translate.Options{Format: translate.Text}
	sourceLang := normalizeLangCode(req.SourceLang)
	if sourceLang != "" && sourceLang != "auto" {
		sourceTag, parseErr := language.Parse(sourceLang)
		if parseErr != nil {
			return nil, &UnsupportedPairError{Provider: p.Name(), SourceLang: req.SourceLang, TargetLang: req.TargetLang}
		}
		opts.Source = sourceTag
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: fmt.Sprintf("create client: %v", err)}
	}

	started := time.Now()
	translations, err := client.Translate(ctx, []string{text}, targetTag, opts)
	if err != nil {
		return nil, p.wrapAPIError(err)
	}
	if len(translations) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Message: "translation response was empty"}
	}

	resolvedSource := sourceLang
	if detected := translations[0].Source; !detected.IsRoot() {
		resolvedSource = normalizeLangCode(detected.String())
	}

	return &TranslateResponse{
		Text:         strings.TrimSpace(translations[0].Text),
		SourceLang:   resolvedSource,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

// Close releases the underlying API client if one was created.
func (p *GoogleProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *GoogleProvider) ensureClient(ctx context.Context) (*translate.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	var opts []option.ClientOption
	if p.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(p.credentialsFile))
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *GoogleProvider) wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return &RateLimitError{Provider: p.Name()}
		}
		return &ProviderError{Provider: p.Name(), Status: apiErr.Code, Message: apiErr.Message}
	}
	return &ProviderError{Provider: p.Name(), Message: err.Error()}
}
