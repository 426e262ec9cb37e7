// Package awsbridge adapts AWS EventBridge to the xcheckout.Bus interface.
//
// A PutEvents call that reaches the service but gets an entry rejected is
// reported through PutResult.FailedEntryCount, not as an error; only a
// transport-level fault returns an error, matching the Bus contract.
package awsbridge

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/trickstertwo/xcheckout"
)

// Client is the slice of the EventBridge API the adapter uses.
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Bus is an EventBridge-backed xcheckout.Bus.
type Bus struct {
	client Client
}

var _ xcheckout.Bus = (*Bus)(nil)

// New wraps an existing EventBridge client.
func New(client Client) *Bus {
	return &Bus{client: client}
}

// NewFromEnv loads the default AWS configuration chain (env, shared config,
// instance role) and returns a connected Bus.
func NewFromEnv(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (*Bus, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("awsbridge: load aws config: %w", err)
	}
	return New(eventbridge.NewFromConfig(cfg)), nil
}

func (b *Bus) PutEvents(ctx context.Context, entries ...xcheckout.BusEntry) (xcheckout.PutResult, error) {
	if len(entries) == 0 {
		return xcheckout.PutResult{}, nil
	}

	in := &eventbridge.PutEventsInput{
		Entries: make([]types.PutEventsRequestEntry, 0, len(entries)),
	}
	for _, e := range entries {
		in.Entries = append(in.Entries, types.PutEventsRequestEntry{
			Source:       aws.String(e.Source),
			DetailType:   aws.String(e.DetailType),
			Detail:       aws.String(e.Detail),
			EventBusName: aws.String(e.EventBusName),
		})
	}

	out, err := b.client.PutEvents(ctx, in)
	if err != nil {
		return xcheckout.PutResult{}, err
	}

	res := xcheckout.PutResult{
		FailedEntryCount: int(out.FailedEntryCount),
		Entries:          make([]xcheckout.PutResultEntry, 0, len(out.Entries)),
	}
	for _, e := range out.Entries {
		res.Entries = append(res.Entries, xcheckout.PutResultEntry{
			EventID:      aws.ToString(e.EventId),
			ErrorCode:    aws.ToString(e.ErrorCode),
			ErrorMessage: aws.ToString(e.ErrorMessage),
		})
	}
	return res, nil
}

// Close is a no-op; the underlying SDK client holds no resources that need
// explicit release.
func (b *Bus) Close(_ context.Context) error { return nil }
