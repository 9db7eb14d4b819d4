package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/lingodrop/internal/language"
)

// Detection below this many letters is too noisy to trust.
const minSampleLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectCode returns the ISO 639-1 code of the dominant language in text, or
// an empty string when the sample is too short or ambiguous.
func DetectCode(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minSampleLetters {
		return ""
	}

	detected, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// Resolve returns the normalized source code, detecting it from text when the
// caller asked for automatic detection. Falls back to "auto" when detection
// has nothing to say, letting providers that detect server-side take over.
func Resolve(source, text string) string {
	if code := language.NormalizeCode(source); code != "" && code != "auto" {
		return code
	}
	if detected := DetectCode(text); detected != "" {
		return detected
	}
	return "auto"
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
