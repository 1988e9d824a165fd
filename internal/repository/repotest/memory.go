// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/suporte-central/pendentes/internal/domain"
	"github.com/suporte-central/pendentes/internal/repository"
)

// Tickets is an in-memory repository.TicketRepository. Listing honours
// the hidden flag, enum filters, search, id ordering and paging.
type Tickets struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]domain.Ticket
	filters []repository.TicketFilter
}

var _ repository.TicketRepository = (*Tickets)(nil)

// NewTickets returns an empty store.
func NewTickets() *Tickets {
	return &Tickets{rows: map[int64]domain.Ticket{}}
}

// Len reports the number of stored tickets.
func (m *Tickets) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Filters returns every filter passed to ListWithFilter.
func (m *Tickets) Filters() []repository.TicketFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.TicketFilter{}, m.filters...)
}

func (m *Tickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.UpdatedAt = time.Now().UTC()
	m.rows[t.ID] = *t
	return nil
}

func (m *Tickets) Update(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cur.Subject = t.Subject
	cur.Description = t.Description
	cur.Priority = t.Priority
	cur.Sector = t.Sector
	cur.EndDate = t.EndDate
	cur.RequesterEmail = t.RequesterEmail
	cur.AssignedToEmail = t.AssignedToEmail
	cur.UpdatedAt = time.Now().UTC()
	m.rows[t.ID] = cur
	*t = cur
	return nil
}

func (m *Tickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	return m.mutate(id, func(*domain.Ticket) {})
}

func (m *Tickets) Delete(_ context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	delete(m.rows, id)
	return &t, nil
}

func (m *Tickets) ToggleStatus(_ context.Context, id int64) (*domain.Ticket, domain.TicketStatus, error) {
	var old domain.TicketStatus
	t, err := m.mutate(id, func(t *domain.Ticket) {
		old = t.Status
		t.Status = old.Toggle()
	})
	return t, old, err
}

func (m *Tickets) ToggleHidden(_ context.Context, id int64) (*domain.Ticket, error) {
	return m.mutate(id, func(t *domain.Ticket) { t.Hidden = !t.Hidden })
}

func (m *Tickets) SetHidden(_ context.Context, id int64, hidden bool) (*domain.Ticket, bool, error) {
	var old bool
	t, err := m.mutate(id, func(t *domain.Ticket) {
		old = t.Hidden
		t.Hidden = hidden
	})
	return t, old, err
}

func (m *Tickets) mutate(id int64, fn func(*domain.Ticket)) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	fn(&t)
	m.rows[id] = t
	return &t, nil
}

func (m *Tickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := lo.Filter(lo.Values(m.rows), func(t domain.Ticket, _ int) bool {
		switch {
		case t.Hidden && !filter.IncludeHidden:
			return false
		case len(filter.Priorities) > 0 && !lo.Contains(filter.Priorities, t.Priority):
			return false
		case len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, t.Status):
			return false
		case len(filter.Sectors) > 0 && !lo.Contains(filter.Sectors, t.Sector):
			return false
		case term != "" && !strings.Contains(strings.ToLower(t.Subject), term) &&
			!strings.Contains(strings.ToLower(t.AssignedToEmail), term):
			return false
		}
		return true
	})
	sort.Slice(matched, func(i, j int) bool {
		if filter.SortDesc || filter.SortKey == "" {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := lo.Clamp(filter.Offset, 0, total)
	end := total
	if filter.Limit > 0 {
		end = lo.Min([]int{start + filter.Limit, total})
	}
	return matched[start:end], total, nil
}

// History is an in-memory repository.TicketHistoryRepository.
type History struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

var _ repository.TicketHistoryRepository = (*History)(nil)

func (m *History) Create(_ context.Context, h *domain.TicketHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.entries) + 1)
	h.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, *h)
	return nil
}

func (m *History) ListByTicket(_ context.Context, ticketID int64, limit, offset int) ([]domain.TicketHistory, error) {
	entries := lo.Drop(m.filter(func(h domain.TicketHistory) bool { return h.TicketID == ticketID }), offset)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// OfType returns the entries with the given change type.
func (m *History) OfType(changeType domain.TicketChangeType) []domain.TicketHistory {
	return m.filter(func(h domain.TicketHistory) bool { return h.ChangeType == changeType })
}

func (m *History) filter(keep func(domain.TicketHistory) bool) []domain.TicketHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Filter(m.entries, func(h domain.TicketHistory, _ int) bool { return keep(h) })
}

// Users is an in-memory repository.UserRepository with case-insensitive
// unique e-mails.
type Users struct {
	mu   sync.Mutex
	byID map[string]domain.User
	seq  int
}

var _ repository.UserRepository = (*Users)(nil)

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{byID: map[string]domain.User{}}
}

func (m *Users) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *Users) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	u.UpdatedAt = time.Now().UTC()
	m.byID[u.ID] = *u
	return nil
}

func (m *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (m *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}
