package payloadschema

// Processing statuses recorded in translation result metadata.
const (
	ProcessingStatusCompleted = "completed"
	ProcessingStatusPartial   = "partial"
)

// ItemStatusFailed marks one text item that could not be translated under
// the partial failure policy.
const ItemStatusFailed = "failed"

// TextItem is one unit of text inside a translation request. Ids are chosen
// by the client and echoed back in the result so items can be correlated.
type TextItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// TranslationRequest is the payload a client uploads into the request
// namespace. One request carries one language pair and one or more texts.
type TranslationRequest struct {
	RequestID      string         `json:"request_id,omitempty"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`
	Texts          []TextItem     `json:"texts"`
	Timestamp      string         `json:"timestamp,omitempty"`
	ClientInfo     map[string]any `json:"client_info,omitempty"`
}

// TranslatedItem is the per-text outcome inside a translation result. Status
// and Error are only set for items that failed under the partial policy.
type TranslatedItem struct {
	ID             int    `json:"id"`
	TranslatedText string `json:"translated_text"`
	OriginalText   string `json:"original_text"`
	CharacterCount int    `json:"character_count"`
	Status         string `json:"status,omitempty"`
	Error          string `json:"error,omitempty"`
}

// TranslationMetadata summarizes one processed request.
type TranslationMetadata struct {
	TotalTexts       int    `json:"total_texts"`
	TotalCharacters  int    `json:"total_characters"`
	Timestamp        string `json:"timestamp"`
	ProcessingStatus string `json:"processing_status"`
}

// TranslationResult is the payload the processor writes into the response
// namespace under the same key as the originating request. Texts preserve
// the order and ids of the request items.
type TranslationResult struct {
	RequestID           string              `json:"request_id,omitempty"`
	SourceLanguage      string              `json:"source_language"`
	TargetLanguage      string              `json:"target_language"`
	Texts               []TranslatedItem    `json:"texts"`
	TranslationMetadata TranslationMetadata `json:"translation_metadata"`
}
