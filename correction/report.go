package correction

import (
	"fmt"
	"io"
	"strings"
)

const separator = "────────────────────────────────────────────────────────────"

// PrintHeader печатает заголовок запуска
func PrintHeader(w io.Writer, result *Result, dbPath string) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Пакет: %s (режим: %s)\n", result.Batch, result.Mode)
	fmt.Fprintf(w, "База: %s\n", dbPath)
	fmt.Fprintf(w, "Запуск: %s\n", result.RunID)
	fmt.Fprintln(w, separator)
}

// PrintOutcome печатает строку результата одного оператора
func PrintOutcome(w io.Writer, o Outcome) {
	if o.OK() {
		fmt.Fprintf(w, "✓ OK [%d стр.]: %s\n", o.RowsAffected, o.Label)
		return
	}
	fmt.Fprintf(w, "✗ ERROR: %s => %v\n", o.Label, o.Err)
}

// PrintSummary печатает итог: число ошибок, затронутые строки и судьбу транзакции
func PrintSummary(w io.Writer, result *Result) {
	failed := result.Failed()
	fmt.Fprintf(w, "\nГотово. Ошибок: %d, изменено строк: %d\n", len(failed), result.RowsChanged())

	switch {
	case result.Committed:
		fmt.Fprintln(w, "Транзакция зафиксирована")
	case result.Mode == ModeDryRun:
		fmt.Fprintln(w, "[DRY-RUN] Изменения отменены")
	default:
		fmt.Fprintln(w, "Транзакция откачена: в пакете есть ошибки")
	}

	for _, o := range failed {
		fmt.Fprintf(w, "  ✗ %s: %v\n", o.Label, o.Err)
	}
}

// PrintVerification печатает таблицу итоговой проверки
func PrintVerification(w io.Writer, summaries []GroupSummary) {
	fmt.Fprintln(w, "\n=== Итоговая проверка ===")
	if len(summaries) == 0 {
		fmt.Fprintln(w, "  (нет элементов в диапазоне)")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s No.%d: %d шт. | %s\n", s.Marker(), s.SortOrder, s.Count, s.Titles)
	}
}

// PrintStatements печатает операторы пакета без выполнения
func PrintStatements(w io.Writer, batch *Batch) {
	fmt.Fprintf(w, "Пакет: %s\n", batch.Name)
	if batch.Description != "" {
		fmt.Fprintln(w, strings.TrimSpace(batch.Description))
	}
	fmt.Fprintf(w, "Проверка: sort_order %d..%d\n", batch.Verify.From, batch.Verify.To)

	for i, stmt := range batch.Statements() {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(batch.Steps), stmt.Label)
		fmt.Fprintln(w, stmt.Query)
		if len(stmt.Args) > 0 {
			fmt.Fprintf(w, "  args: %v\n", stmt.Args)
		}
	}
}
