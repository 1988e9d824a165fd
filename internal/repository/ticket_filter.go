package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/suporte-central/pendentes/internal/domain"
)

// SortKey names a sortable ticket column.
type SortKey string

const (
	SortByID         SortKey = "id"
	SortBySubject    SortKey = "subject"
	SortByPriority   SortKey = "priority"
	SortByStatus     SortKey = "status"
	SortBySector     SortKey = "sector"
	SortByAssignedTo SortKey = "assigned_to"
	SortByRequester  SortKey = "requester"
	SortByCreatedOn  SortKey = "created_on"
	SortByEndDate    SortKey = "end_date"
)

// SortKeys lists every accepted sort key.
var SortKeys = []SortKey{
	SortByID, SortBySubject, SortByPriority, SortByStatus, SortBySector,
	SortByAssignedTo, SortByRequester, SortByCreatedOn, SortByEndDate,
}

var sortExpressions = map[SortKey]string{
	SortByID:         "id",
	SortBySubject:    "LOWER(subject)",
	SortByPriority:   "CASE priority WHEN 'Baixa' THEN 0 WHEN 'Média' THEN 1 WHEN 'Alta' THEN 2 WHEN 'Crítica' THEN 3 ELSE -1 END",
	SortByStatus:     "status",
	SortBySector:     "LOWER(sector)",
	SortByAssignedTo: "LOWER(assigned_to_email)",
	SortByRequester:  "LOWER(requester_email)",
	SortByCreatedOn:  "created_on",
	SortByEndDate:    "end_date",
}

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	_, ok := sortExpressions[k]
	return ok
}

// TicketFilter captures list parameters. Text filters are case-insensitive
// substring matches; enum filters match any of the given values.
type TicketFilter struct {
	Search        string
	Subject       string
	AssignedTo    string
	Requester     string
	Priorities    []domain.TicketPriority
	Statuses      []domain.TicketStatus
	Sectors       []string
	IncludeHidden bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	EndFrom       *time.Time
	EndTo         *time.Time
	SortKey       SortKey
	SortDesc      bool
	Limit         int
	Offset        int
}

const defaultListLimit = 50

// buildListQuery renders the page query and the matching count query. Both
// share the same args.
func buildListQuery(filter TicketFilter) (string, string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeHidden {
		clauses = append(clauses, "hidden = FALSE")
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		p := bind(containsPattern(term))
		clauses = append(clauses, fmt.Sprintf(`(subject ILIKE %[1]s ESCAPE '\' OR assigned_to_email ILIKE %[1]s ESCAPE '\')`, p))
	}
	for _, col := range []struct{ name, value string }{
		{"subject", filter.Subject},
		{"assigned_to_email", filter.AssignedTo},
		{"requester_email", filter.Requester},
	} {
		if value := strings.TrimSpace(col.value); value != "" {
			clauses = append(clauses, fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, col.name, bind(containsPattern(value))))
		}
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, inClause("priority", len(filter.Priorities), func(i int) string { return bind(filter.Priorities[i]) }))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("status", len(filter.Statuses), func(i int) string { return bind(filter.Statuses[i]) }))
	}
	if len(filter.Sectors) > 0 {
		clauses = append(clauses, inClause("sector", len(filter.Sectors), func(i int) string { return bind(filter.Sectors[i]) }))
	}
	if filter.CreatedFrom != nil {
		clauses = append(clauses, "created_on >= "+bind(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		clauses = append(clauses, "created_on <= "+bind(*filter.CreatedTo))
	}
	if filter.EndFrom != nil {
		clauses = append(clauses, "end_date >= "+bind(*filter.EndFrom))
	}
	if filter.EndTo != nil {
		clauses = append(clauses, "end_date <= "+bind(*filter.EndTo))
	}

	where := strings.Join(clauses, " AND ")

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, where, orderBy(filter.SortKey, filter.SortDesc), limit, offset)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, where)
	return query, countQuery, args
}

// orderBy defaults to newest id first. Ties break on id in the same
// direction and empty end dates always sort last.
func orderBy(key SortKey, desc bool) string {
	expr, ok := sortExpressions[key]
	if !ok {
		return "id DESC"
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	if key == SortByID {
		return "id " + dir
	}
	nulls := ""
	if key == SortByEndDate {
		nulls = " NULLS LAST"
	}
	return fmt.Sprintf("%s %s%s, id %s", expr, dir, nulls, dir)
}

func inClause(column string, n int, bindAt func(int) string) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = bindAt(i)
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
