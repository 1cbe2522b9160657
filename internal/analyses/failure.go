package analyses

import (
	"context"
	"errors"
	"net"
	"strings"

	"chess-coach-backend/internal/reasoning"
)

// classifyFailure maps an analysis failure to an error code and a hint whether
// re-submitting could succeed.
func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	var extErr *reasoning.ExternalServiceError
	if errors.As(err, &extErr) {
		if extErr.Timeout || errors.Is(err, context.DeadlineExceeded) {
			return ErrorCodeLLMTimeout, true
		}
		return ErrorCodeLLMUnavailable, isTransient(extErr.Err)
	}
	var parseErr *reasoning.ResponseParseError
	if errors.As(err, &parseErr) {
		return ErrorCodeLLMSchemaMismatch, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	return ErrorCodeInternal, false
}

// isTransient reports network blips, 5xx and rate limiting.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "http status 429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource_exhausted") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}

// sanitizeError flattens err to a single line of at most 500 bytes.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = strings.ToValidUTF8(msg[:maxLen], "")
	}
	return msg
}
