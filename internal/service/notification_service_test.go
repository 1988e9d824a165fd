package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/suporte-central/pendentes/internal/config"
	"github.com/suporte-central/pendentes/internal/events"
	"github.com/suporte-central/pendentes/internal/worker"
)

func newNotificationFixture(t *testing.T, queue *inlineQueue) (*TicketService, *recordingNotifier) {
	t.Helper()
	f := newTicketFixture(t)
	notifier := &recordingNotifier{}
	svc := NewNotificationService(f.dispatcher, queue, notifier, zaptest.NewLogger(t), config.NotificationConfig{
		EmailFrom:      "pendentes@example.com",
		TimeoutSeconds: 5,
	})
	svc.RegisterHandlers()
	return f.svc, notifier
}

func TestNotifiesOnCreate(t *testing.T) {
	queue := &inlineQueue{}
	tickets, notifier := newNotificationFixture(t, queue)

	created, err := tickets.CreateTicket(context.Background(), alice, validInput())
	if err != nil {
		t.Fatal(err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.sent))
	}
	msg := notifier.sent[0]
	if msg.Event != string(events.EventTicketCreated) || msg.TicketID != created.ID {
		t.Errorf("unexpected notification %+v", msg)
	}
	if msg.Subject != "Ticket #1 | Impressora sem toner" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0] != "bruno@example.com" || msg.From != "pendentes@example.com" {
		t.Errorf("routing = %v from %q", msg.Recipients, msg.From)
	}
}

func TestNotifiesOnlyWhenAssigneeChanges(t *testing.T) {
	queue := &inlineQueue{}
	tickets, notifier := newNotificationFixture(t, queue)
	ctx := context.Background()

	created, _ := tickets.CreateTicket(ctx, alice, validInput())

	same := validInput()
	same.Description = "Piso 3"
	if _, err := tickets.UpdateTicket(ctx, alice, created.ID, same); err != nil {
		t.Fatal(err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("edit without reassignment notified: %d", len(notifier.sent))
	}

	moved := validInput()
	moved.AssignedToEmail = "carla@example.com"
	if _, err := tickets.UpdateTicket(ctx, alice, created.ID, moved); err != nil {
		t.Fatal(err)
	}
	if len(notifier.sent) != 2 || notifier.sent[1].Recipients[0] != "carla@example.com" {
		t.Errorf("reassignment not notified: %+v", notifier.sent)
	}
}

func TestQueueFullDoesNotFailTicketWrite(t *testing.T) {
	queue := &inlineQueue{err: worker.ErrQueueFull}
	tickets, notifier := newNotificationFixture(t, queue)

	if _, err := tickets.CreateTicket(context.Background(), alice, validInput()); err != nil {
		t.Fatalf("CreateTicket failed on full queue: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Error("notification sent despite full queue")
	}
}

func TestHandlerRejectsForeignPayload(t *testing.T) {
	svc := NewNotificationService(nil, &inlineQueue{}, &recordingNotifier{}, zaptest.NewLogger(t), config.NotificationConfig{})
	err := svc.handleTicketCreated(context.Background(), events.Event{Type: events.EventTicketCreated, Payload: "raw"})
	if err == nil {
		t.Fatal("expected payload type error")
	}
	if errors.Is(err, worker.ErrQueueFull) {
		t.Error("wrong error kind")
	}
}
