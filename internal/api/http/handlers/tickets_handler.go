package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/suporte-central/pendentes/internal/api/dto"
	"github.com/suporte-central/pendentes/internal/domain"
	"github.com/suporte-central/pendentes/internal/service"
	apperrors "github.com/suporte-central/pendentes/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Options GET /tickets/options.
func (h *TicketsHandler) Options(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Options()})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), query)
	if err != nil {
		return err
	}
	items := lo.Map(page.Tickets, func(t domain.Ticket, _ int) dto.TicketResponse {
		return dto.NewTicketResponse(&t)
	})
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.ListMeta{Total: page.Total, Page: page.Page, PageSize: page.PageSize},
	})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	input, err := parseTicketRequest(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	input, err := parseTicketRequest(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ToggleStatus POST /tickets/:id/status/toggle.
func (h *TicketsHandler) ToggleStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ToggleStatus(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ToggleHidden POST /tickets/:id/hidden/toggle.
func (h *TicketsHandler) ToggleHidden(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ToggleHidden(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SetHidden PUT /tickets/:id/hidden.
func (h *TicketsHandler) SetHidden(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.SetHiddenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.SetHidden(c.UserContext(), actor, id, *req.Hidden)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	entries, err := h.service.ListHistory(c.UserContext(), id, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(entries, func(e domain.TicketHistory, _ int) dto.TicketHistoryResponse {
		return dto.NewTicketHistoryResponse(e)
	})})
}

func parseTicketRequest(c *fiber.Ctx) (service.TicketInput, error) {
	var req dto.TicketRequest
	if err := c.BodyParser(&req); err != nil {
		return service.TicketInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if err := dto.Validate(req); err != nil {
		return service.TicketInput{}, err
	}

	input := service.TicketInput{
		Subject:         req.Subject,
		Description:     req.Description,
		Priority:        domain.TicketPriority(req.Priority),
		Sector:          req.Sector,
		RequesterEmail:  req.RequesterEmail,
		AssignedToEmail: req.AssignedToEmail,
	}
	if req.EndDate != "" {
		end, err := domain.ParseDate(req.EndDate)
		if err != nil {
			return service.TicketInput{}, apperrors.NewValidationError("invalid payload", map[string]any{"end_date": "datetime"})
		}
		input.EndDate = &end
	}
	return input, nil
}
