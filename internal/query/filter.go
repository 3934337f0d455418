package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/drishan/rides-insights/internal/apperrors"
)

// Clause is one column/operator/value predicate.
type Clause struct {
	Column string `json:"column" validate:"required"`
	Op     string `json:"op" validate:"required"`
	Value  any    `json:"value" validate:"required"`
	Value2 any    `json:"value2"` // upper bound, BETWEEN only
}

// Filter is the structured alternative to raw query text: every clause
// is validated against the bookings column allow-list, values are always
// bound as parameters, and clauses combine with AND.
type Filter struct {
	Columns []string `json:"columns"` // empty selects all columns
	Clauses []Clause `json:"clauses"`
	Search  string   `json:"search"` // free text over customer/pickup/drop
	OrderBy string   `json:"orderBy"`
	Desc    bool     `json:"desc"`
	Limit   int      `json:"limit"`
}

var operators = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "BETWEEN": true,
}

// searchColumns are the columns covered by Filter.Search.
var searchColumns = []string{"customer_id", "pickup_location", "drop_location"}

// RunFilter builds and executes a parameterized SELECT over the bookings
// table from a structured filter.
func (r *Runner) RunFilter(ctx context.Context, f Filter) (*Result, error) {
	sqlText, args, err := r.buildFilter(f)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, sqlText, args, "filter")
}

func (r *Runner) buildFilter(f Filter) (string, []any, error) {
	cols := "*"
	if len(f.Columns) > 0 {
		quoted := make([]string, 0, len(f.Columns))
		for _, c := range f.Columns {
			if !r.allowed[c] {
				return "", nil, &apperrors.QueryError{Err: fmt.Errorf("column %q is not queryable", c)}
			}
			quoted = append(quoted, `"`+c+`"`)
		}
		cols = strings.Join(quoted, ", ")
	}

	var where []string
	var args []any
	for _, cl := range f.Clauses {
		if err := r.validate.Struct(cl); err != nil {
			return "", nil, &apperrors.QueryError{Err: err}
		}
		if !r.allowed[cl.Column] {
			return "", nil, &apperrors.QueryError{Err: fmt.Errorf("column %q is not queryable", cl.Column)}
		}
		op := strings.ToUpper(cl.Op)
		if !operators[op] {
			return "", nil, &apperrors.QueryError{Err: fmt.Errorf("operator %q is not supported", cl.Op)}
		}

		if op == "BETWEEN" {
			if cl.Value2 == nil {
				return "", nil, &apperrors.QueryError{Err: fmt.Errorf("BETWEEN on %q needs value2", cl.Column)}
			}
			where = append(where, fmt.Sprintf(`"%s" BETWEEN ? AND ?`, cl.Column))
			args = append(args, cl.Value, cl.Value2)
			continue
		}

		where = append(where, fmt.Sprintf(`"%s" %s ?`, cl.Column, op))
		args = append(args, cl.Value)
	}

	if f.Search != "" {
		var sub []string
		for _, c := range searchColumns {
			sub = append(sub, fmt.Sprintf(`LOWER(CAST("%s" AS TEXT)) LIKE ?`, c))
			args = append(args, "%"+strings.ToLower(f.Search)+"%")
		}
		where = append(where, "("+strings.Join(sub, " OR ")+")")
	}

	sqlText := "SELECT " + cols + " FROM bookings"
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}

	if f.OrderBy != "" {
		if !r.allowed[f.OrderBy] {
			return "", nil, &apperrors.QueryError{Err: fmt.Errorf("cannot order by %q", f.OrderBy)}
		}
		sqlText += fmt.Sprintf(` ORDER BY "%s"`, f.OrderBy)
		if f.Desc {
			sqlText += " DESC"
		}
	}

	sqlText += fmt.Sprintf(" LIMIT %d", clampLimit(f.Limit))
	return sqlText, args, nil
}
