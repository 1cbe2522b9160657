package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"chess-coach-backend/internal/bootstrap"
	"chess-coach-backend/internal/queue"
	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/metrics"
	"chess-coach-backend/internal/shared/telemetry"
	"chess-coach-backend/internal/workerproc"
)

const (
	receiveBatchSize   = 10
	receiveWaitSeconds = 20
	receiveErrorPause  = time.Second
)

func main() {
	cfg := config.Load()
	defer telemetry.Sync()

	if cfg.QueueURL == "" {
		log.Fatal("RA_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := queue.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{RequireAnalyzer: true})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	w := &worker{
		client:      sqs.NewFromConfig(awsCfg),
		queueURL:    cfg.QueueURL,
		processor:   app.Processor,
		concurrency: cfg.WorkerConcurrency,
		visibility:  cfg.VisibilityTimeout,
	}

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          cfg.QueueURL,
		"concurrency":        cfg.WorkerConcurrency,
		"visibility_seconds": cfg.VisibilityTimeout,
	})
	w.run(ctx, cfg.ShutdownTimeout)
	telemetry.Info("worker.stopped", nil)
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type worker struct {
	client      sqsAPI
	queueURL    string
	processor   workerproc.Processor
	concurrency int
	visibility  int32
}

// run polls until ctx is cancelled, then waits up to shutdownTimeout for
// in-flight messages.
func (w *worker) run(ctx context.Context, shutdownTimeout time.Duration) {
	var g errgroup.Group
	g.SetLimit(max(1, w.concurrency))

	// In-flight jobs outlive the shutdown signal so they can commit and ack.
	jobCtx := context.WithoutCancel(ctx)

	for ctx.Err() == nil {
		resp, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: receiveBatchSize,
			WaitTimeSeconds:     receiveWaitSeconds,
			VisibilityTimeout:   w.visibility,
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			sleep(ctx, receiveErrorPause)
			continue
		}

		for _, msg := range resp.Messages {
			metrics.IncWorkerReceived()
			g.Go(func() error {
				w.handleMessage(jobCtx, msg)
				return nil
			})
		}
	}

	telemetry.Info("worker.draining", map[string]any{"timeout": shutdownTimeout.String()})
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

// handleMessage processes one delivery. Successful and poison messages are
// deleted; anything else is left to become visible again.
func (w *worker) handleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.poison_message", fields)
		if w.deleteMessage(ctx, msg, "", decoded.RequestID) {
			metrics.IncWorkerProcessed()
		}
		return
	}

	telemetry.Info("worker.received", baseFields(msg, decoded.JobID, decoded.RequestID))

	parsedCtx := workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(parsedCtx, w.processor, body); err != nil {
		if workerproc.IsPoison(err) {
			fields := baseFields(msg, decoded.JobID, decoded.RequestID)
			fields["error"] = err.Error()
			telemetry.Error("worker.poison_message", fields)
			if w.deleteMessage(ctx, msg, decoded.JobID, decoded.RequestID) {
				metrics.IncWorkerProcessed()
			}
			return
		}
		fields := baseFields(msg, decoded.JobID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.failed", fields)
		metrics.IncWorkerFailed()
		return
	}

	if w.deleteMessage(ctx, msg, decoded.JobID, decoded.RequestID) {
		telemetry.Info("worker.completed", baseFields(msg, decoded.JobID, decoded.RequestID))
		metrics.IncWorkerProcessed()
	}
}

func (w *worker) deleteMessage(ctx context.Context, msg sqstypes.Message, jobID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, jobID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.delete_failed", fields)
		return false
	}
	if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, jobID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, jobID, requestID string) map[string]any {
	fields := map[string]any{
		"job_id":         jobID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
