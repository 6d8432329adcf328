package correction

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSummaryMarker(t *testing.T) {
	assert.Equal(t, "✅", GroupSummary{Count: 2}.Marker())
	assert.Equal(t, "  ", GroupSummary{Count: 1}.Marker())
}

func TestPrintVerification(t *testing.T) {
	var out bytes.Buffer
	PrintVerification(&out, []GroupSummary{
		{GroupID: sql.NullInt64{Int64: 64, Valid: true}, SortOrder: 49, Count: 1, Titles: "OGT No.49 티켓"},
		{GroupID: sql.NullInt64{Int64: 65, Valid: true}, SortOrder: 50, Count: 2, Titles: "a / b"},
	})

	assert.Equal(t, "\n=== Итоговая проверка ===\n"+
		"   No.49: 1 шт. | OGT No.49 티켓\n"+
		"✅ No.50: 2 шт. | a / b\n", out.String())

	out.Reset()
	PrintVerification(&out, nil)
	assert.Contains(t, out.String(), "нет элементов")
}

func TestPrintSummary(t *testing.T) {
	result := &Result{
		Mode: ModeCommit,
		Outcomes: []Outcome{
			{Label: "a", RowsAffected: 2},
			{Label: "b", Err: errors.New("UNIQUE constraint failed")},
		},
		Committed: true,
	}

	var out bytes.Buffer
	PrintSummary(&out, result)
	text := out.String()

	assert.Contains(t, text, "Готово. Ошибок: 1, изменено строк: 2")
	assert.Contains(t, text, "Транзакция зафиксирована")
	assert.Contains(t, text, "  ✗ b: UNIQUE constraint failed")
}

func TestPrintStatements(t *testing.T) {
	var out bytes.Buffer
	PrintStatements(&out, builtin(t))
	text := out.String()

	assert.Contains(t, text, "Пакет: ogt-49-60")
	assert.Contains(t, text, "Проверка: sort_order 49..60")
	assert.Contains(t, text, "[1/11] OGT No.50 티켓 2번째 INSERT")
	assert.Contains(t, text, "[11/11] OGT No.60 커버 INSERT")
}

func TestVerify_NullGroup(t *testing.T) {
	ctx := context.Background()
	db := newEmptyDB(t)

	_, err := db.Exec("INSERT INTO catalog_items (title, category_id, owner_id, sort_order) VALUES ('loose', 1, 1, 55)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO catalog_items (title, category_id, owner_id, sort_order) VALUES ('outside', 1, 1, 61)")
	require.NoError(t, err)

	summaries, err := Verify(ctx, db.GetDB(), 49, 60)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].GroupID.Valid)
	assert.Equal(t, 55, summaries[0].SortOrder)
	assert.Equal(t, "loose", summaries[0].Titles)
}

func TestVerify_QueryFailure(t *testing.T) {
	db := newEmptyDB(t)
	_, err := db.Exec("DROP TABLE catalog_items")
	require.NoError(t, err)

	_, err = Verify(context.Background(), db.GetDB(), 49, 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification query")
}
