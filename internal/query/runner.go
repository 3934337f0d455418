// Package query is the read-only query boundary consumed by the
// dashboard handlers. It accepts either raw SELECT text or a structured
// filter validated against the bookings column allow-list, and always
// bounds result size.
package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/drishan/rides-insights/internal/apperrors"
	"github.com/drishan/rides-insights/internal/database"
	"github.com/drishan/rides-insights/internal/models"
)

const (
	// DefaultRowLimit bounds interactive queries that do not ask for a
	// limit themselves.
	DefaultRowLimit = 500

	// MaxRowLimit caps explicit limit overrides.
	MaxRowLimit = 10000
)

// mutatingKeyword matches statements that could change the store. The
// whitelist is SELECT-only; everything else is rejected before reaching
// the engine.
var mutatingKeyword = regexp.MustCompile(
	`(?i)\b(insert|update|delete|drop|alter|create|replace|attach|detach|pragma|vacuum|reindex)\b`,
)

// Result is an ordered tabular result set.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Runner executes bounded read-only queries against one store handle.
type Runner struct {
	db       *gorm.DB
	validate *validator.Validate
	allowed  map[string]bool
}

func NewRunner(db *gorm.DB) *Runner {
	allowed := make(map[string]bool, len(models.Columns()))
	for _, col := range models.Columns() {
		allowed[col] = true
	}
	return &Runner{
		db:       db,
		validate: validator.New(),
		allowed:  allowed,
	}
}

// Run executes raw query text. Anything that is not a single SELECT (or
// WITH ... SELECT) fails with ErrReadOnly; a malformed SELECT surfaces
// as a QueryError. limit <= 0 applies DefaultRowLimit.
func (r *Runner) Run(ctx context.Context, sqlText string, limit int) (*Result, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sqlText), ";"))
	if trimmed == "" {
		return nil, &apperrors.QueryError{SQL: sqlText, Err: fmt.Errorf("empty query")}
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return nil, apperrors.ErrReadOnly
	}
	if strings.Contains(trimmed, ";") {
		return nil, apperrors.ErrReadOnly
	}
	if mutatingKeyword.MatchString(trimmed) {
		return nil, apperrors.ErrReadOnly
	}

	bounded := fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", trimmed, clampLimit(limit))
	return r.collect(ctx, bounded, nil, sqlText)
}

// RunView executes one view from the catalog by name.
func (r *Runner) RunView(ctx context.Context, name string, limit int) (*Result, error) {
	ok, err := database.HasView(r.db, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("view %s: %w", name, apperrors.ErrNotFound)
	}

	sqlText := fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, name, clampLimit(limit))
	return r.collect(ctx, sqlText, nil, name)
}

// DistinctValues returns the distinct non-null values of an allow-listed
// column, sorted, for the dashboard's filter dropdowns.
func (r *Runner) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if !r.allowed[column] {
		return nil, &apperrors.QueryError{Err: fmt.Errorf("column %q is not queryable", column)}
	}

	var values []string
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(
		`SELECT DISTINCT "%s" AS v FROM bookings WHERE "%s" IS NOT NULL ORDER BY 1`, column, column,
	)).Scan(&values).Error
	if err != nil {
		return nil, &apperrors.QueryError{Err: err}
	}
	return values, nil
}

func (r *Runner) collect(ctx context.Context, sqlText string, args []any, origin string) (*Result, error) {
	rows, err := r.db.WithContext(ctx).Raw(sqlText, args...).Rows()
	if err != nil {
		return nil, &apperrors.QueryError{SQL: origin, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &apperrors.QueryError{SQL: origin, Err: err}
	}

	result := &Result{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &apperrors.QueryError{SQL: origin, Err: err}
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.QueryError{SQL: origin, Err: err}
	}

	return result, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRowLimit
	}
	if limit > MaxRowLimit {
		return MaxRowLimit
	}
	return limit
}
