package events

import (
	"time"

	"github.com/suporte-central/pendentes/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketUpdated           EventType = "ticket_updated"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketVisibilityChanged EventType = "ticket_visibility_changed"
	EventTicketDeleted           EventType = "ticket_deleted"
)

// AllEventTypes lists every event the ticket service emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketVisibilityChanged,
	EventTicketDeleted,
}

// Actor identifies who caused an event.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	Email  string  `json:"email,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketSnapshot is the wire form of a ticket inside event payloads.
type TicketSnapshot struct {
	ID              int64                 `json:"id"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	Priority        domain.TicketPriority `json:"priority"`
	Sector          string                `json:"sector"`
	Status          domain.TicketStatus   `json:"status"`
	CreatedOn       string                `json:"created_on"`
	EndDate         string                `json:"end_date,omitempty"`
	RequesterEmail  string                `json:"requester_email"`
	AssignedToEmail string                `json:"assigned_to_email"`
	Hidden          bool                  `json:"hidden"`
}

// SnapshotOf copies the event-relevant fields of a ticket.
func SnapshotOf(t *domain.Ticket) TicketSnapshot {
	return TicketSnapshot{
		ID:              t.ID,
		Subject:         t.Subject,
		Description:     t.Description,
		Priority:        t.Priority,
		Sector:          t.Sector,
		Status:          t.Status,
		CreatedOn:       t.CreatedOn.Format(domain.DateLayout),
		EndDate:         domain.FormatDate(t.EndDate),
		RequesterEmail:  t.RequesterEmail,
		AssignedToEmail: t.AssignedToEmail,
		Hidden:          t.Hidden,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket TicketSnapshot `json:"ticket"`
}

// FieldChange holds the before and after value of one edited field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Ticket          TicketSnapshot         `json:"ticket"`
	Changes         map[string]FieldChange `json:"changes"`
	AssigneeChanged bool                   `json:"assignee_changed"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    TicketSnapshot      `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketVisibilityChangedPayload payload.
type TicketVisibilityChangedPayload struct {
	Ticket TicketSnapshot `json:"ticket"`
	Hidden bool           `json:"hidden"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Ticket TicketSnapshot `json:"ticket"`
}
