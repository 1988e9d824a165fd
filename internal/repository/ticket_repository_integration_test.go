package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"

	"github.com/suporte-central/pendentes/internal/domain"
	"github.com/suporte-central/pendentes/internal/persistence"
)

// These tests run the SQL against a real database. Point TEST_POSTGRES_DSN
// at a disposable database; every test truncates the ticket tables.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := persistence.RunMigrations(ctx, pool, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE tickets, ticket_history RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

var testCreatedOn = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func seedTicket(t *testing.T, repo TicketRepository, subject string, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Subject:         subject,
		Priority:        domain.TicketPriorityLow,
		Sector:          "Suporte",
		Status:          domain.TicketStatusOpen,
		CreatedOn:       testCreatedOn,
		RequesterEmail:  "ana@example.com",
		AssignedToEmail: "bruno@example.com",
	}
	if mutate != nil {
		mutate(ticket)
	}
	if err := repo.Create(context.Background(), ticket); err != nil {
		t.Fatalf("create %q: %v", subject, err)
	}
	return ticket
}

func subjects(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, ticket := range tickets {
		out[i] = ticket.Subject
	}
	return out
}

func sameOrder(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestTicketRepositoryConcurrentToggles(t *testing.T) {
	repo := NewTicketRepository(newTestPool(t))
	ticket := seedTicket(t, repo, "VPN", nil)

	const n = 24
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reopened int
		errs     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, old, err := repo.ToggleStatus(context.Background(), ticket.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if old == domain.TicketStatusResolved {
				reopened++
			}
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("toggle errors: %v", errs)
	}

	got, err := repo.GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.TicketStatusOpen {
		t.Errorf("status after %d toggles = %s, want Aberto", n, got.Status)
	}
	if reopened != n/2 {
		t.Errorf("toggles that saw Resolvido = %d, want %d", reopened, n/2)
	}
}

func TestTicketRepositoryHiddenTransitions(t *testing.T) {
	repo := NewTicketRepository(newTestPool(t))
	ctx := context.Background()
	ticket := seedTicket(t, repo, "Toner", nil)

	steps := []struct {
		hidden  bool
		wantOld bool
	}{
		{true, false},
		{true, true},
		{false, true},
	}
	for i, step := range steps {
		got, old, err := repo.SetHidden(ctx, ticket.ID, step.hidden)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if old != step.wantOld || got.Hidden != step.hidden {
			t.Errorf("step %d: old=%v hidden=%v, want old=%v hidden=%v", i, old, got.Hidden, step.wantOld, step.hidden)
		}
	}

	toggled, err := repo.ToggleHidden(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("ToggleHidden: %v", err)
	}
	if !toggled.Hidden {
		t.Error("ToggleHidden did not archive")
	}
}

func TestTicketRepositoryUpdateKeepsLifecycleFields(t *testing.T) {
	repo := NewTicketRepository(newTestPool(t))
	ctx := context.Background()
	ticket := seedTicket(t, repo, "Portátil", nil)
	if _, _, err := repo.ToggleStatus(ctx, ticket.ID); err != nil {
		t.Fatalf("ToggleStatus: %v", err)
	}

	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	edit := *ticket
	edit.Subject = "Portátil substituído"
	edit.Priority = domain.TicketPriorityCritical
	edit.EndDate = &end
	edit.Status = domain.TicketStatusOpen
	edit.CreatedOn = testCreatedOn.AddDate(0, 1, 0)
	edit.Hidden = true
	if err := repo.Update(ctx, &edit); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if edit.Subject != "Portátil substituído" || edit.Priority != domain.TicketPriorityCritical {
		t.Errorf("editable fields not written: %+v", edit)
	}
	if edit.EndDate == nil || !edit.EndDate.Equal(end) {
		t.Errorf("end_date = %v, want %s", edit.EndDate, end)
	}
	if edit.Status != domain.TicketStatusResolved {
		t.Errorf("status = %s, want Resolvido", edit.Status)
	}
	if !edit.CreatedOn.Equal(testCreatedOn) {
		t.Errorf("created_on = %s, want %s", edit.CreatedOn, testCreatedOn)
	}
	if edit.Hidden {
		t.Error("update archived the ticket")
	}
}

func TestTicketRepositoryMissingRows(t *testing.T) {
	repo := NewTicketRepository(newTestPool(t))
	ctx := context.Background()

	checks := map[string]func() error{
		"get":    func() error { _, err := repo.GetByID(ctx, 404); return err },
		"update": func() error { return repo.Update(ctx, &domain.Ticket{ID: 404, Subject: "x", Priority: domain.TicketPriorityLow, Sector: "DAF"}) },
		"delete": func() error { _, err := repo.Delete(ctx, 404); return err },
		"toggle": func() error { _, _, err := repo.ToggleStatus(ctx, 404); return err },
		"hidden": func() error { _, _, err := repo.SetHidden(ctx, 404, true); return err },
	}
	for name, check := range checks {
		if err := check(); !errors.Is(err, pgx.ErrNoRows) {
			t.Errorf("%s: err = %v, want pgx.ErrNoRows", name, err)
		}
	}
}

func TestTicketRepositoryListOrdering(t *testing.T) {
	repo := NewTicketRepository(newTestPool(t))
	ctx := context.Background()

	day := func(d int) *time.Time {
		v := time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	seed := []struct {
		subject  string
		priority domain.TicketPriority
		end      *time.Time
	}{
		{"alta", domain.TicketPriorityHigh, day(20)},
		{"critica", domain.TicketPriorityCritical, nil},
		{"baixa", domain.TicketPriorityLow, day(5)},
		{"media", domain.TicketPriorityMedium, nil},
	}
	for _, s := range seed {
		seedTicket(t, repo, s.subject, func(ticket *domain.Ticket) {
			ticket.Priority = s.priority
			ticket.EndDate = s.end
		})
	}

	tests := []struct {
		name string
		key  SortKey
		desc bool
		want []string
	}{
		{"priority desc by severity", SortByPriority, true, []string{"critica", "alta", "media", "baixa"}},
		{"priority asc by severity", SortByPriority, false, []string{"baixa", "media", "alta", "critica"}},
		{"end date asc nulls last", SortByEndDate, false, []string{"baixa", "alta", "critica", "media"}},
		{"end date desc nulls last", SortByEndDate, true, []string{"alta", "baixa", "media", "critica"}},
		{"default newest first", "", false, []string{"media", "baixa", "critica", "alta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.ListWithFilter(ctx, TicketFilter{SortKey: tt.key, SortDesc: tt.desc})
			if err != nil {
				t.Fatalf("ListWithFilter: %v", err)
			}
			if total != len(seed) || !sameOrder(subjects(got), tt.want) {
				t.Errorf("got %v (total %d), want %v", subjects(got), total, tt.want)
			}
		})
	}
}

func TestTicketRepositoryListFilters(t *testing.T) {
	repo := NewTicketRepository(newTestPool(t))
	ctx := context.Background()

	seedTicket(t, repo, "50%_off promo", nil)
	seedTicket(t, repo, "500 off promo", nil)
	seedTicket(t, repo, "50x off promo", func(ticket *domain.Ticket) {
		ticket.AssignedToEmail = "CMendes@example.com"
		ticket.Priority = domain.TicketPriorityHigh
	})
	seedTicket(t, repo, "arquivado", func(ticket *domain.Ticket) {
		ticket.Hidden = true
		ticket.CreatedOn = testCreatedOn.AddDate(0, 0, 5)
	})

	from := testCreatedOn.AddDate(0, 0, 1)
	tests := []struct {
		name      string
		filter    TicketFilter
		want      []string
		wantTotal int
	}{
		{"wildcards match literally", TicketFilter{Search: "50%_off"}, []string{"50%_off promo"}, 1},
		{"search covers assignee", TicketFilter{Search: "cmendes"}, []string{"50x off promo"}, 1},
		{"hidden excluded by default", TicketFilter{Subject: "arquiv"}, []string{}, 0},
		{"hidden included on request", TicketFilter{Subject: "arquiv", IncludeHidden: true}, []string{"arquivado"}, 1},
		{"created range", TicketFilter{IncludeHidden: true, CreatedFrom: &from}, []string{"arquivado"}, 1},
		{"enum any-of", TicketFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityHigh, domain.TicketPriorityCritical}}, []string{"50x off promo"}, 1},
		{"paging keeps total", TicketFilter{Search: "promo", SortKey: SortByID, Limit: 1, Offset: 1}, []string{"500 off promo"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.ListWithFilter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListWithFilter: %v", err)
			}
			if total != tt.wantTotal || !sameOrder(subjects(got), tt.want) {
				t.Errorf("got %v (total %d), want %v (total %d)", subjects(got), total, tt.want, tt.wantTotal)
			}
		})
	}
}

func TestTicketHistoryRepositoryCascade(t *testing.T) {
	pool := newTestPool(t)
	tickets := NewTicketRepository(pool)
	history := NewTicketHistoryRepository(pool)
	ctx := context.Background()

	ticket := seedTicket(t, tickets, "VPN", nil)
	for _, changeType := range []domain.TicketChangeType{domain.ChangeTypeCreated, domain.ChangeTypeStatus} {
		entry := &domain.TicketHistory{TicketID: ticket.ID, ChangeType: changeType}
		if err := history.Create(ctx, entry); err != nil {
			t.Fatalf("history create: %v", err)
		}
	}
	entries, err := history.ListByTicket(ctx, ticket.ID, 1, 1)
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(entries) != 1 || entries[0].ChangeType != domain.ChangeTypeStatus {
		t.Errorf("paged history = %+v", entries)
	}

	if _, err := tickets.Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	entries, err = history.ListByTicket(ctx, ticket.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListByTicket after delete: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("history survived delete: %+v", entries)
	}
}
