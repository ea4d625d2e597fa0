package queue

import (
	"context"

	"public-safety-incident-system/shared/metricsx"
)

// InstrumentedPublisher counts successful publishes per provider. Receive and
// delete are counted by the worker loop, publish happens wherever a service
// holds the handle.
type InstrumentedPublisher struct {
	next     Publisher
	provider string
}

func NewInstrumentedPublisher(next Publisher, provider string) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, provider: provider}
}

func (p *InstrumentedPublisher) Publish(ctx context.Context, msg Message) error {
	if err := p.next.Publish(ctx, msg); err != nil {
		return err
	}
	metricsx.IncQueuePublished(p.provider)
	return nil
}
