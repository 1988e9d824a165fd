package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "Aberto"
	TicketStatusResolved TicketStatus = "Resolvido"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusResolved
}

// Toggle returns the other status. Anything unknown reopens.
func (s TicketStatus) Toggle() TicketStatus {
	if s == TicketStatusOpen {
		return TicketStatusResolved
	}
	return TicketStatusOpen
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Baixa"
	TicketPriorityMedium   TicketPriority = "Média"
	TicketPriorityHigh     TicketPriority = "Alta"
	TicketPriorityCritical TicketPriority = "Crítica"
)

// TicketPriorities lists priorities from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// TicketStatuses lists every status.
var TicketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusResolved}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities by severity, -1 when unknown.
func (p TicketPriority) Rank() int {
	for i, candidate := range TicketPriorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Ticket is a support or task record.
type Ticket struct {
	ID              int64
	Subject         string
	Description     string
	Priority        TicketPriority
	Sector          string
	Status          TicketStatus
	CreatedOn       time.Time
	EndDate         *time.Time
	RequesterEmail  string
	AssignedToEmail string
	Hidden          bool
	UpdatedAt       time.Time
}
