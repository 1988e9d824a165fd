package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"
)

func TestWebhookNotifierPosts(t *testing.T) {
	var got TicketNotification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(nil, srv.URL, "noreply@example.com", time.Second, zaptest.NewLogger(t))
	err := n.Notify(context.Background(), TicketNotification{
		Event:      "ticket_created",
		Recipients: []string{"cchau@example.com"},
		TicketID:   12,
		Title:      "Acesso VPN",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.TicketID != 12 || got.From != "noreply@example.com" || got.Recipients[0] != "cchau@example.com" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not modified", http.StatusNotModified},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			n := NewWebhookNotifier(nil, srv.URL, "", time.Second, zaptest.NewLogger(t))
			err := n.Notify(context.Background(), TicketNotification{Recipients: []string{"a@example.com"}})
			if err == nil || !strings.Contains(err.Error(), strconv.Itoa(tt.status)) {
				t.Errorf("Notify = %v, want %d error", err, tt.status)
			}
		})
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"curto", 10, "curto"},
		{"exato", 5, "exato"},
		{"manutenção", 9, "manutençã..."},
		{"çççç", 2, "çç..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
		}
	}
}

func TestWebhookNotifierDisabled(t *testing.T) {
	n := NewWebhookNotifier(nil, "  ", "", 0, zaptest.NewLogger(t))
	if n.Enabled() {
		t.Fatal("blank url reported enabled")
	}
	if err := n.Notify(context.Background(), TicketNotification{}); err != nil {
		t.Errorf("disabled Notify = %v", err)
	}
}

func TestWebhookNotifierRequiresRecipients(t *testing.T) {
	n := NewWebhookNotifier(nil, "http://127.0.0.1:1", "", time.Second, zaptest.NewLogger(t))
	if err := n.Notify(context.Background(), TicketNotification{}); err == nil {
		t.Error("expected error without recipients")
	}
}
