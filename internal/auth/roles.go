package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/suporte-central/pendentes/internal/domain"
)

// RequireUser ensures a team member is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser || principal.User == nil {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}
