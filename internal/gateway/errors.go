package gateway

import (
	"errors"
	"fmt"
)

// User-facing messages, shown verbatim in the UI.
const (
	ExtractionFailedMessage = "Nije uspjelo prepoznavanje jelovnika. Provjerite kvalitetu slike i pokušajte ponovno."
	ChatFailedMessage       = "Oprostite, došlo je do greške."
)

var ErrMissingCredential = errors.New("api credential not configured")

// ExtractionError is returned by every failed ExtractMenu call.
type ExtractionError struct {
	Message string
	Err     error
}

func NewExtractionError(err error) *ExtractionError {
	return &ExtractionError{Message: ExtractionFailedMessage, Err: err}
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "menu extraction failed"
	}
	return fmt.Sprintf("menu extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// UserMessage is the localized text to display for this failure.
func (e *ExtractionError) UserMessage() string { return e.Message }

// ChatError is returned when an advisor session cannot be created or a turn
// fails.
type ChatError struct {
	Message string
	Err     error
}

func NewChatError(err error) *ChatError {
	return &ChatError{Message: ChatFailedMessage, Err: err}
}

func (e *ChatError) Error() string {
	if e.Err == nil {
		return "advisor chat failed"
	}
	return fmt.Sprintf("advisor chat failed: %v", e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }

func (e *ChatError) UserMessage() string { return e.Message }

// SchemaError reports a model reply that does not match MenuSchema.
type SchemaError struct {
	Index  int // -1 when the reply as a whole is malformed
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return "menu schema: " + e.Reason
	}
	return fmt.Sprintf("menu schema: item %d: %s", e.Index, e.Reason)
}
