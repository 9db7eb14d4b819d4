package translation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StaticProvider translates from a fixed in-memory dictionary. Texts without
// a dictionary entry are tagged with the target language code, which keeps
// the pipeline observable end to end without an external translation backend.
type StaticProvider struct {
	entries map[string]map[string]string
}

// NewStaticProvider builds a static provider seeded with a small demo dictionary.
func NewStaticProvider() *StaticProvider {
	return NewStaticProviderWithEntries(map[string]map[string]string{
		"en:es": {
			"Hello":         "Hola",
			"Hello, world!": "¡Hola, mundo!",
			"Good morning":  "Buenos días",
			"Thank you":     "Gracias",
		},
		"en:fr": {
			"Hello":     "Bonjour",
			"Thank you": "Merci",
		},
		"en:de": {
			"Hello":        "Hallo",
			"Good morning": "Guten Morgen",
		},
		"es:en": {
			"Hola":    "Hello",
			"Gracias": "Thank you",
		},
	})
}

// NewStaticProviderWithEntries builds a static provider from a dictionary
// keyed by "source:target" pair, then by exact source text.
func NewStaticProviderWithEntries(entries map[string]map[string]string) *StaticProvider {
	if entries == nil {
		entries = map[string]map[string]string{}
	}
	return &StaticProvider{entries: entries}
}

func (p *StaticProvider) Name() string {
	return "static"
}

func (p *StaticProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *StaticProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("static provider is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if _, ok := translationLanguageLabels[targetLang]; !ok {
		return nil, &UnsupportedPairError{Provider: p.Name(), SourceLang: req.SourceLang, TargetLang: req.TargetLang}
	}

	sourceLang := normalizeLangCode(req.SourceLang)
	started := time.Now()

	translated := ""
	if byText, ok := p.entries[sourceLang+":"+targetLang]; ok {
		translated = byText[text]
	}
	if translated == "" {
		translated = fmt.Sprintf("[%s] %s", targetLang, text)
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}
