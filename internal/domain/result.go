package domain

// CallTranscript is the success payload: the call metadata plus transcript text.
type CallTranscript struct {
	CallMetadata
	Transcript string `json:"transcript"`
}

// ExtractionResult holds either a CallTranscript or an error description, never both.
// Build it with Succeeded or Failed.
type ExtractionResult struct {
	*CallTranscript
	Error string `json:"error,omitempty"`
}

// Succeeded builds the success variant.
func Succeeded(meta CallMetadata, transcript string) ExtractionResult {
	if transcript == "" {
		transcript = NoTranscript
	}
	return ExtractionResult{CallTranscript: &CallTranscript{CallMetadata: meta, Transcript: transcript}}
}

// Failed builds the failure variant.
func Failed(err error) ExtractionResult {
	msg := "extraction failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return ExtractionResult{Error: msg}
}

// OK reports whether the result is the success variant.
func (r ExtractionResult) OK() bool {
	return r.CallTranscript != nil
}
