package integration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"otbookfix/correction"
	"otbookfix/database"
)

// seedDatabase создает файл базы в состоянии до корректировки
func seedDatabase(t *testing.T, driver string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "otbook.sqlite")
	db, err := database.NewDBWithConfig(path, database.DBConfig{Driver: driver})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.InitCatalogSchema(db.GetDB()))
	_, err = database.SeedOGTFixture(context.Background(), db)
	require.NoError(t, err)

	return path
}

func summaryCounts(summaries []correction.GroupSummary) map[int]int {
	counts := make(map[int]int, len(summaries))
	for _, s := range summaries {
		counts[s.SortOrder] = s.Count
	}
	return counts
}

// TestFullCorrectionFlow полный поток на файле: dry-run, применение, повтор
func TestFullCorrectionFlow(t *testing.T) {
	for _, driver := range []string{database.DriverMattn, database.DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			path := seedDatabase(t, driver)

			db, err := database.NewDBWithConfig(path, database.DBConfig{Driver: driver, BusyTimeout: time.Second})
			require.NoError(t, err)
			defer db.Close()

			missing, err := db.MissingCatalogColumns(ctx)
			require.NoError(t, err)
			require.Empty(t, missing)

			batch, err := correction.LoadBatch("")
			require.NoError(t, err)

			// Dry-run показывает будущий результат и ничего не меняет
			dry, err := correction.NewRunner(db, correction.WithMode(correction.ModeDryRun)).Run(ctx, batch)
			require.NoError(t, err)
			before, err := correction.Verify(ctx, db.GetDB(), 49, 60)
			require.NoError(t, err)
			for _, s := range before {
				assert.Equal(t, 1, s.Count, "No.%d before apply", s.SortOrder)
			}

			var out bytes.Buffer
			applied, err := correction.NewRunner(db,
				correction.WithOutput(&out),
				correction.WithLogger(zaptest.NewLogger(t)),
			).Run(ctx, batch)
			require.NoError(t, err)
			assert.True(t, applied.Committed)
			assert.Empty(t, applied.Failed())
			assert.Equal(t, int64(11), applied.RowsChanged())

			// Результат dry-run совпадает с реальным применением
			assert.Empty(t, cmp.Diff(summaryCounts(dry.Summaries), summaryCounts(applied.Summaries)))

			again, err := correction.NewRunner(db).Run(ctx, batch)
			require.NoError(t, err)
			assert.Empty(t, again.Failed())
			assert.Equal(t, int64(0), again.RowsChanged())
			assert.Equal(t, applied.Summaries, again.Summaries)

			total, err := db.CountCatalogItems(ctx)
			require.NoError(t, err)
			assert.Equal(t, 20, total)
		})
	}
}

// TestLockedDatabase операторы падают по блокировке, пакет доходит до конца
func TestLockedDatabase(t *testing.T) {
	ctx := context.Background()
	path := seedDatabase(t, database.DriverMattn)

	other, err := database.NewDB(path)
	require.NoError(t, err)
	defer other.Close()

	lock, err := other.GetDB().Conn(ctx)
	require.NoError(t, err)
	defer lock.Close()
	_, err = lock.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)

	db, err := database.NewDBWithConfig(path, database.DBConfig{BusyTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	defer db.Close()

	batch, err := correction.LoadBatch("")
	require.NoError(t, err)

	result, err := correction.NewRunner(db).Run(ctx, batch)
	require.NoError(t, err)

	failed := result.Failed()
	require.Len(t, failed, len(batch.Steps))
	for _, o := range failed {
		assert.True(t, database.IsBusy(o.Err), "%s: %v", o.Label, o.Err)
	}
	assert.Equal(t, int64(0), result.RowsChanged())

	_, err = lock.ExecContext(ctx, "ROLLBACK")
	require.NoError(t, err)

	count, err := db.CountCatalogItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}
