package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSNotifierSendsEvent(t *testing.T) {
	fake := &fakeSQS{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := &SQSNotifier{client: fake, queueURL: "https://sqs.local/q", now: func() time.Time { return now }}

	err := n.ExportReady(context.Background(), Event{ExportID: "e1", UserID: "u1", StorageKey: "k"})
	if err != nil {
		t.Fatalf("ExportReady: %v", err)
	}
	if aws.ToString(fake.input.QueueUrl) != "https://sqs.local/q" {
		t.Fatalf("unexpected queue url %q", aws.ToString(fake.input.QueueUrl))
	}
	ev, err := DecodeEvent([]byte(aws.ToString(fake.input.MessageBody)))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Type != EventExportReady || ev.ExportID != "e1" || ev.Version != 1 || !ev.OccurredAt.Equal(now) {
		t.Fatalf("unexpected event %+v", ev)
	}
	if aws.ToString(fake.input.MessageAttributes["type"].StringValue) != EventExportReady {
		t.Fatalf("missing type attribute")
	}
}

func TestSQSNotifierError(t *testing.T) {
	boom := errors.New("throttled")
	n := &SQSNotifier{client: &fakeSQS{err: boom}, queueURL: "q", now: time.Now}
	if err := n.ExportReady(context.Background(), Event{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
