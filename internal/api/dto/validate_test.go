package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/suporte-central/pendentes/internal/domain"
	apperrors "github.com/suporte-central/pendentes/pkg/util/errorutil"
)

func TestValidateTicketRequest(t *testing.T) {
	ok := TicketRequest{
		Subject:         "Acesso VPN",
		Priority:        "Média",
		Sector:          "DAF",
		EndDate:         "2026-07-01",
		AssignedToEmail: "bruno@example.com",
	}
	if err := Validate(ok); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := ok
	bad.Priority = "Urgente"
	bad.EndDate = "01/07/2026"
	bad.AssignedToEmail = ""
	err := Validate(bad)
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v", err)
	}
	for field, tag := range map[string]string{
		"priority":          "oneof",
		"end_date":          "datetime",
		"assigned_to_email": "required",
	} {
		if de.Details[field] != tag {
			t.Errorf("details[%s] = %v, want %s", field, de.Details[field], tag)
		}
	}
}

func TestSetHiddenRequiresValue(t *testing.T) {
	if err := Validate(SetHiddenRequest{}); err == nil {
		t.Error("missing hidden accepted")
	}
	no := false
	if err := Validate(SetHiddenRequest{Hidden: &no}); err != nil {
		t.Errorf("explicit false rejected: %v", err)
	}
}

func TestNewTicketResponseDates(t *testing.T) {
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	resp := NewTicketResponse(&domain.Ticket{
		ID:        3,
		CreatedOn: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
	})
	if resp.CreatedOn != "2026-06-02" || resp.EndDate == nil || *resp.EndDate != "2026-07-01" {
		t.Errorf("dates = %s / %v", resp.CreatedOn, resp.EndDate)
	}
	if NewTicketResponse(&domain.Ticket{}).EndDate != nil {
		t.Error("nil end date rendered")
	}
}
