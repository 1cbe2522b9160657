package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"chess-coach-backend/internal/shared/storage/object"
)

func TestPutAndOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.Put(ctx, object.RawResponseKey("job-1"), "text/plain", strings.NewReader("raw output"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("raw output")) {
		t.Fatalf("expected %d bytes, got %d", len("raw output"), n)
	}

	rc, err := store.Open(ctx, "raw/job-1.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "raw output" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestPutRejectsEscapingKey(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Put(context.Background(), "../outside.txt", "text/plain", strings.NewReader("x")); err != object.ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestPutHonoursCancelledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "raw/a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected context error")
	}
}
