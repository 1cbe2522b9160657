package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSender struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSend(t *testing.T) {
	fake := &fakeSender{}
	client := NewSQSClientWithAPI(fake, "https://sqs.local/queue")

	if err := client.Send(context.Background(), NewMessage("job-9", "req-9", time.Now())); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if aws.ToString(fake.input.QueueUrl) != "https://sqs.local/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(fake.input.QueueUrl))
	}
	msg, err := DecodeMessage([]byte(aws.ToString(fake.input.MessageBody)))
	if err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if msg.JobID != "job-9" {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
}

func TestSQSClientSendError(t *testing.T) {
	client := NewSQSClientWithAPI(&fakeSender{err: errors.New("throttled")}, "q")
	err := client.Send(context.Background(), NewMessage("job-1", "", time.Now()))
	if err == nil || !strings.Contains(err.Error(), "sqs send message") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), "us-east-1", " "); err == nil {
		t.Fatalf("expected error for empty queue url")
	}
}
