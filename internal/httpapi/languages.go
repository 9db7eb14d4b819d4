package httpapi

import (
	"github.com/labstack/echo/v4"

	"horse.fit/lingodrop/internal/translation"
)

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items":            translation.TranslationLanguageOptions(s.registry),
		"source_items":     translation.SourceLanguageOptions(s.registry),
		"providers":        s.registry.ProviderNames(),
		"default_provider": s.registry.DefaultProvider(),
	})
}
