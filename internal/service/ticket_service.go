package service

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/suporte-central/pendentes/internal/config"
	"github.com/suporte-central/pendentes/internal/domain"
	"github.com/suporte-central/pendentes/internal/events"
	"github.com/suporte-central/pendentes/internal/repository"
	apperrors "github.com/suporte-central/pendentes/pkg/util/errorutil"
)

// Actor is the authenticated caller behind a ticket operation.
type Actor struct {
	UserID string
	Email  string
}

// TicketInput carries the editable ticket fields for create and update.
type TicketInput struct {
	Subject         string
	Description     string
	Priority        domain.TicketPriority
	Sector          string
	EndDate         *time.Time
	RequesterEmail  string
	AssignedToEmail string
}

// TicketQuery describes a listing request.
type TicketQuery struct {
	Search      string
	Subject     string
	AssignedTo  string
	Requester   string
	Priorities  []domain.TicketPriority
	Statuses    []domain.TicketStatus
	Sectors     []string
	ShowHidden  bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	EndFrom     *time.Time
	EndTo       *time.Time
	Sort        string
	Desc        bool
	Page        int
	PageSize    int
}

// TicketPage is one page of a listing plus the total match count.
type TicketPage struct {
	Tickets  []domain.Ticket
	Total    int
	Page     int
	PageSize int
}

// TicketOptions lists the values accepted by ticket forms and filters.
type TicketOptions struct {
	Priorities []domain.TicketPriority `json:"priorities"`
	Statuses   []domain.TicketStatus   `json:"statuses"`
	Sectors    []string                `json:"sectors"`
	TeamEmails []string                `json:"team_emails"`
	SortKeys   []repository.SortKey    `json:"sort_keys"`
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	cfg        config.TicketsConfig
	logger     *zap.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Config      config.TicketsConfig
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
		logger:     logger,
		validate:   newFieldValidator(),
		now:        clock,
	}
}

func newFieldValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ticketRules holds the free-text constraints checked by the validator.
type ticketRules struct {
	Subject         string `json:"subject" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=5000"`
	RequesterEmail  string `json:"requester_email" validate:"required,email"`
	AssignedToEmail string `json:"assigned_to_email" validate:"required,email"`
}

// CreateTicket stores a new open ticket dated today.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketInput) (*domain.Ticket, error) {
	input = normalizeInput(input)
	if input.RequesterEmail == "" {
		input.RequesterEmail = strings.TrimSpace(actor.Email)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityLow
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Subject:         input.Subject,
		Description:     input.Description,
		Priority:        input.Priority,
		Sector:          input.Sector,
		Status:          domain.TicketStatusOpen,
		CreatedOn:       domain.DateOnly(s.now()),
		EndDate:         input.EndDate,
		RequesterEmail:  input.RequesterEmail,
		AssignedToEmail: input.AssignedToEmail,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	snapshot := events.SnapshotOf(ticket)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeCreated, nil, snapshotValues(snapshot))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload:  events.TicketCreatedPayload{Ticket: snapshot},
	})
	return ticket, nil
}

// UpdateTicket replaces the editable fields. Status, created-on and the
// hidden flag are left as stored.
func (s *TicketService) UpdateTicket(ctx context.Context, actor Actor, id int64, input TicketInput) (*domain.Ticket, error) {
	current, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	input = normalizeInput(input)
	if input.RequesterEmail == "" {
		input.RequesterEmail = current.RequesterEmail
	}
	if input.Priority == "" {
		input.Priority = current.Priority
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	updated := *current
	updated.Subject = input.Subject
	updated.Description = input.Description
	updated.Priority = input.Priority
	updated.Sector = input.Sector
	updated.EndDate = input.EndDate
	updated.RequesterEmail = input.RequesterEmail
	updated.AssignedToEmail = input.AssignedToEmail

	changes := diffTickets(current, &updated)
	if err := s.tickets.Update(ctx, &updated); err != nil {
		return nil, notFoundOr(err, id)
	}

	if len(changes) > 0 {
		oldValues := make(map[string]any, len(changes))
		newValues := make(map[string]any, len(changes))
		for field, change := range changes {
			oldValues[field] = change.Old
			newValues[field] = change.New
		}
		s.recordHistory(ctx, actor, id, domain.ChangeTypeUpdated, oldValues, newValues)
	}
	_, assigneeChanged := changes["assigned_to_email"]
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: id,
		Actor:    eventActor(actor),
		Payload: events.TicketUpdatedPayload{
			Ticket:          events.SnapshotOf(&updated),
			Changes:         changes,
			AssigneeChanged: assigneeChanged,
		},
	})
	return &updated, nil
}

// GetTicket fetches one ticket, hidden or not.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.getTicket(ctx, id)
}

// DeleteTicket removes the ticket and its history.
func (s *TicketService) DeleteTicket(ctx context.Context, actor Actor, id int64) error {
	ticket, err := s.tickets.Delete(ctx, id)
	if err != nil {
		return notFoundOr(err, id)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Actor:    eventActor(actor),
		Payload:  events.TicketDeletedPayload{Ticket: events.SnapshotOf(ticket)},
	})
	return nil
}

// ToggleStatus flips Aberto and Resolvido.
func (s *TicketService) ToggleStatus(ctx context.Context, actor Actor, id int64) (*domain.Ticket, error) {
	ticket, oldStatus, err := s.tickets.ToggleStatus(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	s.recordHistory(ctx, actor, id, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			Ticket:    events.SnapshotOf(ticket),
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// ToggleHidden archives a visible ticket or restores an archived one.
func (s *TicketService) ToggleHidden(ctx context.Context, actor Actor, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.ToggleHidden(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	s.visibilityChanged(ctx, actor, ticket, !ticket.Hidden)
	return ticket, nil
}

// SetHidden stores an explicit archived flag. Setting the current value
// again records nothing.
func (s *TicketService) SetHidden(ctx context.Context, actor Actor, id int64, hidden bool) (*domain.Ticket, error) {
	ticket, old, err := s.tickets.SetHidden(ctx, id, hidden)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	if old != hidden {
		s.visibilityChanged(ctx, actor, ticket, old)
	}
	return ticket, nil
}

func (s *TicketService) visibilityChanged(ctx context.Context, actor Actor, ticket *domain.Ticket, old bool) {
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeVisibility,
		map[string]any{"hidden": old},
		map[string]any{"hidden": ticket.Hidden})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketVisibilityChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketVisibilityChangedPayload{
			Ticket: events.SnapshotOf(ticket),
			Hidden: ticket.Hidden,
		},
	})
}

// ListTickets returns the requested page of tickets.
func (s *TicketService) ListTickets(ctx context.Context, query TicketQuery) (*TicketPage, error) {
	filter, page, pageSize, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}
	tickets, total, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *TicketService) buildFilter(query TicketQuery) (repository.TicketFilter, int, int, error) {
	details := map[string]any{}

	sortKey := repository.SortKey(strings.TrimSpace(query.Sort))
	if sortKey != "" && !sortKey.Valid() {
		details["sort"] = "unknown sort key"
	}
	if bad := lo.Reject(query.Priorities, func(p domain.TicketPriority, _ int) bool { return p.Valid() }); len(bad) > 0 {
		details["priority"] = bad
	}
	if bad := lo.Reject(query.Statuses, func(st domain.TicketStatus, _ int) bool { return st.Valid() }); len(bad) > 0 {
		details["status"] = bad
	}
	if query.CreatedFrom != nil && query.CreatedTo != nil && query.CreatedFrom.After(*query.CreatedTo) {
		details["created_from"] = "after created_to"
	}
	if query.EndFrom != nil && query.EndTo != nil && query.EndFrom.After(*query.EndTo) {
		details["end_from"] = "after end_to"
	}

	page := query.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		details["page"] = "must be positive"
	}
	pageSize := query.PageSize
	if pageSize == 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize < 0 || (s.cfg.MaxPageSize > 0 && pageSize > s.cfg.MaxPageSize) {
		details["page_size"] = "out of range"
	} else if page > 0 && pageSize > 0 && page-1 > math.MaxInt/pageSize {
		details["page"] = "too large"
	}
	if len(details) > 0 {
		return repository.TicketFilter{}, 0, 0, apperrors.NewValidationError("invalid ticket query", details)
	}

	filter := repository.TicketFilter{
		Search:        query.Search,
		Subject:       query.Subject,
		AssignedTo:    query.AssignedTo,
		Requester:     query.Requester,
		Priorities:    lo.Uniq(query.Priorities),
		Statuses:      lo.Uniq(query.Statuses),
		Sectors:       lo.Uniq(lo.Compact(lo.Map(query.Sectors, func(v string, _ int) string { return strings.TrimSpace(v) }))),
		IncludeHidden: query.ShowHidden,
		CreatedFrom:   query.CreatedFrom,
		CreatedTo:     query.CreatedTo,
		EndFrom:       query.EndFrom,
		EndTo:         query.EndTo,
		SortKey:       sortKey,
		SortDesc:      query.Desc,
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}
	if sortKey == "" {
		filter.SortKey = repository.SortByID
		filter.SortDesc = true
	}
	return filter, page, pageSize, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
// A zero limit means the maximum page size.
func (s *TicketService) ListHistory(ctx context.Context, id int64, limit, offset int) ([]domain.TicketHistory, error) {
	details := map[string]any{}
	if limit == 0 {
		limit = s.cfg.MaxPageSize
	}
	if limit < 0 || (s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize) {
		details["limit"] = "out of range"
	}
	if offset < 0 {
		details["offset"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid history query", details)
	}
	if _, err := s.getTicket(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	return s.history.ListByTicket(ctx, id, limit, offset)
}

// Options reports the accepted priorities, statuses, sectors, team
// addresses and sort keys.
func (s *TicketService) Options() TicketOptions {
	return TicketOptions{
		Priorities: append([]domain.TicketPriority{}, domain.TicketPriorities...),
		Statuses:   append([]domain.TicketStatus{}, domain.TicketStatuses...),
		Sectors:    append([]string{}, s.cfg.Sectors...),
		TeamEmails: append([]string{}, s.cfg.TeamEmails...),
		SortKeys:   append([]repository.SortKey{}, repository.SortKeys...),
	}
}

func (s *TicketService) getTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	return ticket, nil
}

func (s *TicketService) validateInput(input TicketInput) error {
	details := map[string]any{}

	err := s.validate.Struct(ticketRules{
		Subject:         input.Subject,
		Description:     input.Description,
		RequesterEmail:  input.RequesterEmail,
		AssignedToEmail: input.AssignedToEmail,
	})
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	} else if err != nil {
		return err
	}

	if !input.Priority.Valid() {
		details["priority"] = "oneof"
	}
	if !lo.Contains(s.cfg.Sectors, input.Sector) {
		details["sector"] = "oneof"
	}
	if _, bad := details["assigned_to_email"]; !bad && len(s.cfg.TeamEmails) > 0 && !s.isTeamMember(input.AssignedToEmail) {
		details["assigned_to_email"] = "team"
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

func (s *TicketService) isTeamMember(email string) bool {
	return lo.ContainsBy(s.cfg.TeamEmails, func(member string) bool {
		return strings.EqualFold(member, email)
	})
}

func normalizeInput(input TicketInput) TicketInput {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	input.Sector = strings.TrimSpace(input.Sector)
	input.RequesterEmail = strings.TrimSpace(input.RequesterEmail)
	input.AssignedToEmail = strings.TrimSpace(input.AssignedToEmail)
	input.Priority = domain.TicketPriority(strings.TrimSpace(string(input.Priority)))
	if input.EndDate != nil {
		day := domain.DateOnly(*input.EndDate)
		input.EndDate = &day
	}
	return input
}

// diffTickets reports the editable fields whose value differs.
func diffTickets(before, after *domain.Ticket) map[string]events.FieldChange {
	changes := map[string]events.FieldChange{}
	add := func(field string, from, to any) {
		if from != to {
			changes[field] = events.FieldChange{Old: from, New: to}
		}
	}
	add("subject", before.Subject, after.Subject)
	add("description", before.Description, after.Description)
	add("priority", string(before.Priority), string(after.Priority))
	add("sector", before.Sector, after.Sector)
	add("end_date", domain.FormatDate(before.EndDate), domain.FormatDate(after.EndDate))
	add("requester_email", before.RequesterEmail, after.RequesterEmail)
	add("assigned_to_email", before.AssignedToEmail, after.AssignedToEmail)
	return changes
}

func snapshotValues(snap events.TicketSnapshot) map[string]any {
	return map[string]any{
		"subject":           snap.Subject,
		"description":       snap.Description,
		"priority":          snap.Priority,
		"sector":            snap.Sector,
		"status":            snap.Status,
		"created_on":        snap.CreatedOn,
		"end_date":          snap.EndDate,
		"requester_email":   snap.RequesterEmail,
		"assigned_to_email": snap.AssignedToEmail,
	}
}

// recordHistory is best effort: the ticket change is already committed.
func (s *TicketService) recordHistory(ctx context.Context, actor Actor, ticketID int64, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if actor.UserID != "" {
		id := actor.UserID
		entry.ChangedByID = &id
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history",
			zap.Int64("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ticket event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func eventActor(actor Actor) events.Actor {
	out := events.Actor{Email: actor.Email}
	if actor.UserID != "" {
		id := actor.UserID
		out.UserID = &id
	}
	return out
}

func notFoundOr(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return err
}
