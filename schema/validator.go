package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/lingodrop/internal/language"
)

//go:embed translation_request.schema.json
var translationRequestSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateTranslationRequestPayload checks raw JSON against the translation
// request schema plus semantic rules and returns the decoded request.
func ValidateTranslationRequestPayload(payload json.RawMessage) (*TranslationRequest, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var request TranslationRequest
	if err := json.Unmarshal(normalized, &request); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&request); err != nil {
		return nil, err
	}

	return &request, nil
}

// ParseTranslationResult decodes a stored translation result. It rejects
// payloads that are not valid JSON or that lack the texts array, so callers
// can tell a corrupt stored object from a missing one.
func ParseTranslationResult(raw []byte) (*TranslationResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("result is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	var result TranslationResult
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode result JSON: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("result contains trailing content")
	}

	if len(result.Texts) == 0 {
		return nil, fmt.Errorf("result is missing texts")
	}
	if strings.TrimSpace(result.TargetLanguage) == "" {
		return nil, fmt.Errorf("result is missing target_language")
	}

	return &result, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("translation_request.schema.json", strings.NewReader(translationRequestSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("translation_request.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(request *TranslationRequest) error {
	if request == nil {
		return fmt.Errorf("payload is nil")
	}

	if language.NormalizeTag(request.SourceLanguage) == "" {
		return fmt.Errorf("source_language must be a language tag")
	}

	target := language.NormalizeTag(request.TargetLanguage)
	if target == "" {
		return fmt.Errorf("target_language must be a language tag")
	}
	if language.IsAuto(request.TargetLanguage) {
		return fmt.Errorf("target_language must not be auto")
	}

	if len(request.Texts) == 0 {
		return fmt.Errorf("texts must not be empty")
	}

	return nil
}
