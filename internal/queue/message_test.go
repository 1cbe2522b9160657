package queue

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jobId":" job-123 ","requestId":"req-1","enqueuedAt":"2026-01-30T22:00:00Z","version":1}`))
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.JobID != "job-123" {
		t.Fatalf("expected trimmed job id, got %q", msg.JobID)
	}
	if msg.RequestID != "req-1" || msg.Version != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestDecodeMessageMissingJobID(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"requestId":"req-1"}`))
	if !errors.Is(err, ErrMissingJobID) {
		t.Fatalf("expected ErrMissingJobID, got %v", err)
	}
}

func TestDecodeMessageInvalidJSON(t *testing.T) {
	if _, err := DecodeMessage([]byte(`not-json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	msg := NewMessage("job-1", "req-1", now)
	if msg.EnqueuedAt != "2026-03-01T09:00:00Z" {
		t.Fatalf("unexpected enqueuedAt %q", msg.EnqueuedAt)
	}
	if msg.Version != MessageVersion {
		t.Fatalf("unexpected version %d", msg.Version)
	}
}
