package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStaleUpdate       = errors.New("job missing or status transition not allowed")
	ErrEnqueueFailed     = errors.New("enqueue failed")
	ErrProcessorNotReady = errors.New("job processor not configured")
)

const (
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMUnavailable    = "LLM_UNAVAILABLE"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// PersistenceError wraps a store failure on a write the caller must retry.
type PersistenceError struct {
	Op    string
	JobID string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s job=%s: %v", e.Op, e.JobID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
