package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/suporte-central/pendentes/internal/config"
	"github.com/suporte-central/pendentes/internal/events"
	"github.com/suporte-central/pendentes/internal/notify"
	"github.com/suporte-central/pendentes/internal/worker"
)

// JobQueue accepts background jobs.
type JobQueue interface {
	Push(job worker.Job) error
}

// NotificationService turns ticket events into outbound notifications
// delivered off the request path.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      JobQueue
	notifier   notify.Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue JobQueue, notifier notify.Notifier, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.enqueue(event.Type, payload.Ticket)
}

// handleTicketUpdated only notifies when the ticket changed hands.
func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if !payload.AssigneeChanged {
		return nil
	}
	return n.enqueue(event.Type, payload.Ticket)
}

func (n *NotificationService) enqueue(eventType events.EventType, ticket events.TicketSnapshot) error {
	msg := buildNotification(eventType, ticket, n.cfg.EmailFrom)
	if len(msg.Recipients) == 0 {
		n.logger.Debug("ticket has no recipients, skipping notification", zap.Int64("ticket_id", ticket.ID))
		return nil
	}

	timeout := n.cfg.Timeout()
	err := n.queue.Push(func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return n.notifier.Notify(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("enqueue notification for ticket %d: %w", ticket.ID, err)
	}
	return nil
}

func buildNotification(eventType events.EventType, ticket events.TicketSnapshot, from string) notify.TicketNotification {
	recipients := lo.Uniq(lo.Compact([]string{strings.TrimSpace(ticket.AssignedToEmail)}))
	return notify.TicketNotification{
		Event:           string(eventType),
		From:            from,
		Recipients:      recipients,
		Subject:         fmt.Sprintf("Ticket #%d | %s", ticket.ID, ticket.Subject),
		TicketID:        ticket.ID,
		Title:           ticket.Subject,
		Description:     ticket.Description,
		Sector:          ticket.Sector,
		Status:          string(ticket.Status),
		Priority:        string(ticket.Priority),
		AssignedToEmail: ticket.AssignedToEmail,
		RequesterEmail:  ticket.RequesterEmail,
		EndDate:         ticket.EndDate,
		CreatedOn:       ticket.CreatedOn,
	}
}
