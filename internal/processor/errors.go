package processor

import "fmt"

// MalformedInputError reports a stored request that failed schema or semantic
// validation. The request object is left in place for inspection and no
// result is written.
type MalformedInputError struct {
	Key    string
	Reason error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed request %q: %v", e.Key, e.Reason)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Reason
}

// TranslationFailureError reports that translating a request failed and no
// result was written. ItemID names the first failing text item.
type TranslationFailureError struct {
	Key    string
	ItemID int
	Err    error
}

func (e *TranslationFailureError) Error() string {
	return fmt.Sprintf("translate request %q item %d: %v", e.Key, e.ItemID, e.Err)
}

func (e *TranslationFailureError) Unwrap() error {
	return e.Err
}
