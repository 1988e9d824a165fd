package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/suporte-central/pendentes/internal/auth"
	"github.com/suporte-central/pendentes/internal/domain"
	"github.com/suporte-central/pendentes/internal/service"
	apperrors "github.com/suporte-central/pendentes/pkg/util/errorutil"
)

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return service.Actor{}, apperrors.NewUnauthorized("user required")
	}
	return service.Actor{UserID: principal.User.ID, Email: principal.User.Email}, nil
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

// splitList reads a comma separated query value.
func splitList(val string) []string {
	return lo.Compact(lo.Map(strings.Split(val, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	}))
}

// queryParser collects per-field problems while reading query values.
type queryParser struct {
	c       *fiber.Ctx
	details map[string]any
}

func (p *queryParser) dateParam(key string) *time.Time {
	raw := strings.TrimSpace(p.c.Query(key))
	if raw == "" {
		return nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		p.details[key] = "expected YYYY-MM-DD"
		return nil
	}
	return &t
}

func (p *queryParser) intParam(key string) int {
	raw := strings.TrimSpace(p.c.Query(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.details[key] = "expected integer"
		return 0
	}
	return n
}

func (p *queryParser) boolParam(key string) bool {
	raw := strings.TrimSpace(p.c.Query(key))
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.details[key] = "expected boolean"
		return false
	}
	return b
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketQuery, error) {
	p := &queryParser{c: c, details: map[string]any{}}
	query := service.TicketQuery{
		Search:     c.Query("search"),
		Subject:    c.Query("subject"),
		AssignedTo: c.Query("assigned_to"),
		Requester:  c.Query("requester"),
		Priorities: lo.Map(splitList(c.Query("priority")), func(v string, _ int) domain.TicketPriority {
			return domain.TicketPriority(v)
		}),
		Statuses: lo.Map(splitList(c.Query("status")), func(v string, _ int) domain.TicketStatus {
			return domain.TicketStatus(v)
		}),
		Sectors:     splitList(c.Query("sector")),
		ShowHidden:  p.boolParam("show_hidden"),
		CreatedFrom: p.dateParam("created_from"),
		CreatedTo:   p.dateParam("created_to"),
		EndFrom:     p.dateParam("end_from"),
		EndTo:       p.dateParam("end_to"),
		Sort:        c.Query("sort"),
		Page:        p.intParam("page"),
		PageSize:    p.intParam("page_size"),
	}
	switch strings.ToLower(strings.TrimSpace(c.Query("order"))) {
	case "", "asc":
	case "desc":
		query.Desc = true
	default:
		p.details["order"] = "expected asc or desc"
	}
	if len(p.details) > 0 {
		return service.TicketQuery{}, apperrors.NewValidationError("invalid ticket query", p.details)
	}
	return query, nil
}
