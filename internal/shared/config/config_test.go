package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LLM_PROVIDER", "REASONING_TIMEOUT_SECONDS", "PUZZLE_LINK_TIMEOUT_SECONDS", "RA_WORKER_CONCURRENCY", "OBJECT_STORE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if cfg.ReasoningTimeout != 120*time.Second {
		t.Fatalf("expected 120s reasoning timeout, got %s", cfg.ReasoningTimeout)
	}
	if cfg.PuzzleTimeout != 10*time.Second {
		t.Fatalf("expected 10s puzzle timeout, got %s", cfg.PuzzleTimeout)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.WorkerConcurrency)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("REASONING_TIMEOUT_SECONDS", "45")
	t.Setenv("RA_WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("ENV", "prod")

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", cfg.LLMProvider)
	}
	if cfg.ReasoningTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.ReasoningTimeout)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("expected invalid concurrency to fall back to 2, got %d", cfg.WorkerConcurrency)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3, got %q", cfg.ObjectStoreType)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
}

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line   string
		key    string
		val    string
		wantOK bool
	}{
		{line: "LLM_MODEL=gpt-4o-mini", key: "LLM_MODEL", val: "gpt-4o-mini", wantOK: true},
		{line: `export GEMINI_API_KEY="abc"`, key: "GEMINI_API_KEY", val: "abc", wantOK: true},
		{line: "# comment", wantOK: false},
		{line: "NOVALUE", wantOK: false},
		{line: "   ", wantOK: false},
	}
	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.wantOK || key != tt.key || val != tt.val {
			t.Fatalf("parseEnvLine(%q) = %q, %q, %v", tt.line, key, val, ok)
		}
	}
}
