package translation

import (
	"context"

	"horse.fit/lingodrop/internal/language"
)

// Provider translates free-form text between languages.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	Name() string
	SupportedLanguages() []string
}

// TranslateRequest describes one translation call.
type TranslateRequest struct {
	Text       string
	SourceLang string // ISO 639-1 (for example: "es", "en"); "auto" or empty asks the provider to detect
	TargetLang string
}

// TranslateResponse contains translated text and provider metadata.
type TranslateResponse struct {
	Text         string
	SourceLang   string // resolved source when the provider detected it
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}

func normalizeLangCode(raw string) string {
	return language.NormalizeCode(raw)
}
