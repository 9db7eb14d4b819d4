package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when OPENAI_MODEL is unset.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider translates text through the OpenAI chat completions API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	apiKeySet bool
}

// NewOpenAIProviderFromEnv builds an OpenAI provider from env vars.
//   - OPENAI_API_KEY
//   - OPENAI_MODEL (default: gpt-4o-mini)
//   - OPENAI_BASE_URL (optional, for compatible gateways)
func NewOpenAIProviderFromEnv() *OpenAIProvider {
	return NewOpenAIProvider(
		strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
	)
}

func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientConfig.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		apiKeySet: strings.TrimSpace(apiKey) != "",
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ModelName returns the configured model identifier.
func (p *OpenAIProvider) ModelName() string {
	if p == nil {
		return ""
	}
	return p.model
}

func (p *OpenAIProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("openai provider is nil")
	}
	if !p.apiKeySet {
		return nil, &ProviderError{Provider: p.Name(), Message: "OPENAI_API_KEY is not configured"}
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	sourceLang := normalizeLangCode(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	started := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildTranslationPrompt(text, sourceLang, targetLang),
			},
		},
	})
	if err != nil {
		return nil, p.wrapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Message: "translation response missing choices"}
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return nil, &ProviderError{Provider: p.Name(), Message: "translation response was empty"}
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func (p *OpenAIProvider) wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Provider: p.Name()}
		}
		return &ProviderError{Provider: p.Name(), Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return &ProviderError{Provider: p.Name(), Message: err.Error()}
}
