package queue

import (
	"context"
	"sync"
)

// MemoryQueue is a process-scoped queue guarded by a mutex. Receive does not
// remove messages: a message stays visible until Delete acknowledges its
// receipt handle, which is what makes redelivery observable in tests.
type MemoryQueue struct {
	mu       sync.Mutex
	order    []string
	messages map[string]Message
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{messages: make(map[string]Message)}
}

func (q *MemoryQueue) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	handle := newReceiptHandle()
	q.mu.Lock()
	q.order = append(q.order, handle)
	q.messages[handle] = msg
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int) ([]Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxMessages < 1 {
		maxMessages = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	envelopes := make([]Envelope, 0, maxMessages)
	for _, handle := range q.order {
		msg, ok := q.messages[handle]
		if !ok {
			continue
		}
		envelopes = append(envelopes, Envelope{ReceiptHandle: handle, Message: msg})
		if len(envelopes) == maxMessages {
			break
		}
	}
	return envelopes, nil
}

func (q *MemoryQueue) Delete(ctx context.Context, receiptHandle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	delete(q.messages, receiptHandle)
	for i, handle := range q.order {
		if handle == receiptHandle {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	q.mu.Unlock()
	return nil
}
