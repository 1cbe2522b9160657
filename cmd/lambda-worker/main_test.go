package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"chess-coach-backend/internal/queue"
	"chess-coach-backend/internal/shared/telemetry"
)

type stubProcessor struct {
	failFor map[string]bool
}

func (s stubProcessor) ProcessJob(ctx context.Context, jobID string) error {
	if s.failFor[jobID] {
		return errors.New("database unavailable")
	}
	return nil
}

func body(t *testing.T, jobID string) string {
	t.Helper()
	payload, err := queue.EncodeMessage(queue.NewMessage(jobID, "", time.Now()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(payload)
}

func TestHandleBatchReportsOnlyRetryableFailures(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "ok", Body: body(t, "job-ok")},
		{MessageId: "retry", Body: body(t, "job-retry")},
		{MessageId: "poison", Body: "{not json"},
	}}

	resp := handleBatch(context.Background(), stubProcessor{failFor: map[string]bool{"job-retry": true}}, event)

	if len(resp.BatchItemFailures) != 1 {
		t.Fatalf("expected one failure, got %+v", resp.BatchItemFailures)
	}
	if resp.BatchItemFailures[0].ItemIdentifier != "retry" {
		t.Fatalf("unexpected failure id %q", resp.BatchItemFailures[0].ItemIdentifier)
	}
}
