package queue

import (
	"context"
	"sync"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

// Published is one message captured by a Recorder.
type Published struct {
	Exchange, Key string
	Event         any
	ReqID         string
}

// Recorder keeps published messages in memory; used by tests.
type Recorder struct {
	mu   sync.Mutex
	msgs []Published
}

func (r *Recorder) Publish(_ context.Context, exchange, key string, event any, reqID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Published{Exchange: exchange, Key: key, Event: event, ReqID: reqID})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Messages() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.msgs...)
}
