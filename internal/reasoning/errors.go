package reasoning

import "fmt"

// ExternalServiceError means the generation call itself failed.
type ExternalServiceError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *ExternalServiceError) Error() string {
	kind := "reasoning service error"
	if e.Timeout {
		kind = "reasoning service timeout"
	}
	if e.Provider != "" {
		kind = e.Provider + " " + kind
	}
	if e.Err == nil {
		return kind
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ResponseParseError means the call succeeded but no usable payload could be
// extracted from its text.
type ResponseParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ResponseParseError) Error() string {
	if e.Err == nil {
		return "response parse failure: " + e.Reason
	}
	return fmt.Sprintf("response parse failure: %s: %v", e.Reason, e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }
