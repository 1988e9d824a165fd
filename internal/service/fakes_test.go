package service

import (
	"context"
	"sync"

	"github.com/suporte-central/pendentes/internal/events"
	"github.com/suporte-central/pendentes/internal/notify"
	"github.com/suporte-central/pendentes/internal/worker"
)

type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

// inlineQueue runs jobs synchronously.
type inlineQueue struct {
	err  error
	jobs int
}

func (q *inlineQueue) Push(job worker.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs++
	return job(context.Background())
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.TicketNotification
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.TicketNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}
