package correction

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier выполняет чтение; подходят *sql.DB и *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// GroupSummary строка итоговой проверки по одной группе каталога
type GroupSummary struct {
	GroupID   sql.NullInt64
	SortOrder int
	Count     int
	Titles    string
}

// Split сообщает, что в группе больше одного элемента
func (g GroupSummary) Split() bool {
	return g.Count > 1
}

// Marker отметка строки отчета
func (g GroupSummary) Marker() string {
	if g.Split() {
		return "✅"
	}
	return "  "
}

const verifyQuery = `
	SELECT ci.catalog_group_id,
	       MIN(ci.sort_order) AS sort_order,
	       COUNT(ci.id) AS cnt,
	       GROUP_CONCAT(ci.title, ' / ' ORDER BY ci.sort_order, ci.id) AS titles
	FROM catalog_items ci
	WHERE ci.sort_order BETWEEN ? AND ?
	GROUP BY ci.catalog_group_id
	ORDER BY sort_order, ci.catalog_group_id
`

// Verify группирует элементы с sort_order в [from, to] по catalog_group_id.
// Только чтение.
func Verify(ctx context.Context, q Querier, from, to int) ([]GroupSummary, error) {
	rows, err := q.QueryContext(ctx, verifyQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to run verification query: %w", err)
	}
	defer rows.Close()

	var summaries []GroupSummary
	for rows.Next() {
		var s GroupSummary
		var titles sql.NullString
		if err := rows.Scan(&s.GroupID, &s.SortOrder, &s.Count, &titles); err != nil {
			return nil, fmt.Errorf("failed to scan verification row: %w", err)
		}
		s.Titles = titles.String
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read verification rows: %w", err)
	}

	return summaries, nil
}
