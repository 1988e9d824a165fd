package dto

import (
	"time"

	"github.com/suporte-central/pendentes/internal/domain"
)

// TicketRequest is the payload for creating and editing a ticket.
type TicketRequest struct {
	Subject         string `json:"subject" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=5000"`
	Priority        string `json:"priority" validate:"omitempty,oneof=Baixa Média Alta Crítica"`
	Sector          string `json:"sector" validate:"required"`
	EndDate         string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	RequesterEmail  string `json:"requester_email" validate:"omitempty,email"`
	AssignedToEmail string `json:"assigned_to_email" validate:"required,email"`
}

// SetHiddenRequest stores an explicit archived flag.
type SetHiddenRequest struct {
	Hidden *bool `json:"hidden" validate:"required"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID              int64                 `json:"id"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	Priority        domain.TicketPriority `json:"priority"`
	Sector          string                `json:"sector"`
	Status          domain.TicketStatus   `json:"status"`
	CreatedOn       string                `json:"created_on"`
	EndDate         *string               `json:"end_date"`
	RequesterEmail  string                `json:"requester_email"`
	AssignedToEmail string                `json:"assigned_to_email"`
	Hidden          bool                  `json:"hidden"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          int64                   `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// ListMeta describes a paginated listing.
type ListMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:              ticket.ID,
		Subject:         ticket.Subject,
		Description:     ticket.Description,
		Priority:        ticket.Priority,
		Sector:          ticket.Sector,
		Status:          ticket.Status,
		CreatedOn:       ticket.CreatedOn.Format(domain.DateLayout),
		RequesterEmail:  ticket.RequesterEmail,
		AssignedToEmail: ticket.AssignedToEmail,
		Hidden:          ticket.Hidden,
		UpdatedAt:       ticket.UpdatedAt,
	}
	if ticket.EndDate != nil {
		end := ticket.EndDate.Format(domain.DateLayout)
		resp.EndDate = &end
	}
	return resp
}

// NewTicketHistoryResponse converts a history entry.
func NewTicketHistoryResponse(entry domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		ID:          entry.ID,
		ChangeType:  entry.ChangeType,
		ChangedByID: entry.ChangedByID,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		CreatedAt:   entry.CreatedAt,
	}
}
