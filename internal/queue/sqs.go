package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// SQSQueue adapts one SQS queue to the Publisher/Consumer ports. SQS already
// provides at-least-once delivery with receipt-handle acknowledgement, so the
// adapter only translates shapes and clamps the receive batch to SQS's 1-10.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSQueue(client *sqs.Client, queueURL string) (*SQSQueue, error) {
	if queueURL == "" {
		return nil, errors.New("INCIDENT_QUEUE_URL is required")
	}
	return &SQSQueue{client: client, queueURL: queueURL}, nil
}

func (q *SQSQueue) Publish(ctx context.Context, msg Message) error {
	ctx, span := otel.Tracer("queue").Start(ctx, "sqs.publish")
	span.SetAttributes(
		attribute.String("messaging.system", "sqs"),
		attribute.String("messaging.destination", q.queueURL),
	)
	defer span.End()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	if _, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("%w: send message: %v", ErrUnavailable, err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, maxMessages int) ([]Envelope, error) {
	ctx, span := otel.Tracer("queue").Start(ctx, "sqs.receive")
	span.SetAttributes(attribute.String("messaging.system", "sqs"))
	defer span.End()

	if maxMessages < 1 {
		maxMessages = 1
	}
	if maxMessages > 10 {
		maxMessages = 10
	}
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: receive messages: %v", ErrUnavailable, err)
	}

	envelopes := make([]Envelope, 0, len(out.Messages))
	for _, raw := range out.Messages {
		if raw.Body == nil || raw.ReceiptHandle == nil || *raw.ReceiptHandle == "" {
			continue
		}
		msg, ok := decodeBody([]byte(*raw.Body))
		if !ok {
			continue
		}
		envelopes = append(envelopes, Envelope{ReceiptHandle: *raw.ReceiptHandle, Message: msg})
	}
	return envelopes, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		var invalidHandle *types.ReceiptHandleIsInvalid
		if errors.As(err, &invalidHandle) {
			return nil
		}
		return fmt.Errorf("%w: delete message: %v", ErrUnavailable, err)
	}
	return nil
}
