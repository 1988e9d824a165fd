package domain

import (
	"testing"
	"time"
)

func TestTicketStatusToggle(t *testing.T) {
	tests := []struct {
		in, want TicketStatus
	}{
		{TicketStatusOpen, TicketStatusResolved},
		{TicketStatusResolved, TicketStatusOpen},
		{TicketStatus("?"), TicketStatusOpen},
	}
	for _, tt := range tests {
		if got := tt.in.Toggle(); got != tt.want {
			t.Errorf("%q.Toggle() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTicketPriorityRank(t *testing.T) {
	if TicketPriorityLow.Rank() >= TicketPriorityMedium.Rank() ||
		TicketPriorityMedium.Rank() >= TicketPriorityHigh.Rank() ||
		TicketPriorityHigh.Rank() >= TicketPriorityCritical.Rank() {
		t.Fatal("priorities are not ordered by severity")
	}
	if TicketPriority("Urgente").Valid() {
		t.Error("unknown priority reported valid")
	}
	if !TicketPriority("Média").Valid() {
		t.Error("Média reported invalid")
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	in := time.Date(2026, 3, 1, 0, 30, 0, 0, loc)
	got := DateOnly(in)
	if got.Format(DateLayout) != "2026-02-28" {
		t.Errorf("DateOnly = %s, want 2026-02-28", got.Format(DateLayout))
	}
	parsed, err := ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !parsed.Equal(got) {
		t.Errorf("ParseDate = %v, want %v", parsed, got)
	}
	if FormatDate(nil) != "" {
		t.Error("FormatDate(nil) not empty")
	}
}
