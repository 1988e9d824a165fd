package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/suporte-central/pendentes/internal/domain"
	apperrors "github.com/suporte-central/pendentes/pkg/util/errorutil"
)

type stubUsers struct {
	users map[string]*domain.User
}

func (s *stubUsers) Create(context.Context, *domain.User) error { return nil }
func (s *stubUsers) Update(context.Context, *domain.User) error { return nil }
func (s *stubUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := NewTokenManager("test-secret", 5)
	users := &stubUsers{users: map[string]*domain.User{
		"active":    {ID: "active", Email: "ana@example.com", Status: domain.UserStatusActive},
		"suspended": {ID: "suspended", Email: "rui@example.com", Status: domain.UserStatusSuspended},
	}}
	mw := NewAuthMiddleware(tm, users)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", mw.Handle, RequireUser(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Email)
	})
	app.Get("/stream", mw.HandleStream, RequireUser(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Email)
	})
	return app, tm
}

func TestAuthMiddleware(t *testing.T) {
	app, tm := newTestApp(t)
	token := func(id string) string {
		tok, _, err := tm.GenerateToken(id, domain.SubjectTypeUser, "")
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"missing", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"unknown user", "/me", "Bearer " + token("ghost"), http.StatusUnauthorized},
		{"suspended", "/me", "Bearer " + token("suspended"), http.StatusForbidden},
		{"bearer ok", "/me", "Bearer " + token("active"), http.StatusOK},
		{"query token ignored", "/me?access_token=" + token("active"), "", http.StatusUnauthorized},
		{"stream query token", "/stream?access_token=" + token("active"), "", http.StatusOK},
		{"stream bad query token", "/stream?access_token=abc", "", http.StatusUnauthorized},
		{"stream bearer", "/stream", "Bearer " + token("active"), http.StatusOK},
		{"stream suspended", "/stream?access_token=" + token("suspended"), "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
