// Package awssqs adapts AWS SQS to the xcheckout.Queue interface.
//
// Receive maps straight onto ReceiveMessage with WaitTimeSeconds for long
// polling; Delete maps onto DeleteMessage by receipt handle. The queue's own
// visibility timeout provides the at-least-once redelivery the consumer
// relies on.
package awssqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/trickstertwo/xcheckout"
)

// sqsMaxBatch is the ReceiveMessage hard cap.
const sqsMaxBatch = 10

// Client is the slice of the SQS API the adapter uses.
type Client interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Queue is an SQS-backed xcheckout.Queue bound to one queue URL.
type Queue struct {
	client   Client
	queueURL string
}

var _ xcheckout.Queue = (*Queue)(nil)

// New wraps an existing SQS client.
func New(client Client, queueURL string) (*Queue, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("awssqs: queue url required")
	}
	return &Queue{client: client, queueURL: queueURL}, nil
}

// NewFromEnv loads the default AWS configuration chain and returns a
// connected Queue.
func NewFromEnv(ctx context.Context, queueURL string, optFns ...func(*awsconfig.LoadOptions) error) (*Queue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("awssqs: load aws config: %w", err)
	}
	return New(sqs.NewFromConfig(cfg), queueURL)
}

func (q *Queue) Receive(ctx context.Context, opts xcheckout.ReceiveOptions) ([]xcheckout.QueueMessage, error) {
	max := opts.MaxMessages
	if max < 1 {
		max = 1
	}
	if max > sqsMaxBatch {
		max = sqsMaxBatch
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(opts.WaitTime.Seconds()),
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]xcheckout.QueueMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, xcheckout.QueueMessage{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
		})
	}
	return msgs, nil
}

func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return err
}

// Close is a no-op; the underlying SDK client holds no resources that need
// explicit release.
func (q *Queue) Close(_ context.Context) error { return nil }
