package correction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"otbookfix/database"
)

// Mode режим фиксации пакета
type Mode int

const (
	// ModeCommit фиксирует все успешные операторы, даже если часть упала
	ModeCommit Mode = iota
	// ModeAtomic откатывает весь пакет при первой же ошибке в отчете
	ModeAtomic
	// ModeDryRun выполняет пакет и проверку внутри транзакции и откатывает ее
	ModeDryRun
)

func (m Mode) String() string {
	switch m {
	case ModeAtomic:
		return "atomic"
	case ModeDryRun:
		return "dry-run"
	default:
		return "commit"
	}
}

// ErrBatchFailed пакет в режиме atomic содержал ошибки и был откачен
var ErrBatchFailed = errors.New("batch failed")

// Execer выполняет оператор; подходят *sql.DB и *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Outcome результат одного оператора
type Outcome struct {
	Label        string
	RowsAffected int64
	Err          error
}

// OK оператор выполнен без ошибки
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Result результат выполнения пакета
type Result struct {
	RunID      string
	Batch      string
	Mode       Mode
	Outcomes   []Outcome
	Committed  bool
	Summaries  []GroupSummary
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed возвращает упавшие операторы
func (r *Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// RowsChanged сумма затронутых строк по успешным операторам
func (r *Result) RowsChanged() int64 {
	var total int64
	for _, o := range r.Outcomes {
		if o.OK() {
			total += o.RowsAffected
		}
	}
	return total
}

// Runner последовательно выполняет операторы пакета на одном соединении
type Runner struct {
	db     *database.DB
	logger *zap.Logger
	out    io.Writer
	mode   Mode
	runID  string
}

// Option настройка Runner
type Option func(*Runner)

// WithLogger задает логгер
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutput задает вывод отчета
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithMode задает режим фиксации
func WithMode(mode Mode) Option {
	return func(r *Runner) {
		r.mode = mode
	}
}

// WithRunID задает идентификатор запуска
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// NewRunner создает Runner
func NewRunner(db *database.DB, opts ...Option) *Runner {
	r := &Runner{
		db:     db,
		logger: zap.NewNop(),
		out:    io.Discard,
		mode:   ModeCommit,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("run_id", r.runID))
	return r
}

// RunID идентификатор запуска
func (r *Runner) RunID() string {
	return r.runID
}

// Execute выполняет операторы по порядку. Ошибка оператора записывается в
// Outcome и не прерывает цикл; возвращается только отмена контекста.
func (r *Runner) Execute(ctx context.Context, exec Execer, statements []Statement) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(statements))

	for i, stmt := range statements {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("interrupted before %q: %w", stmt.Label, err)
		}

		outcome := Outcome{Label: stmt.Label}
		result, err := exec.ExecContext(ctx, stmt.Query, stmt.Args...)
		if err == nil {
			outcome.RowsAffected, err = result.RowsAffected()
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcomes, fmt.Errorf("interrupted at %q: %w", stmt.Label, ctxErr)
			}
			outcome.Err = err
			r.logger.Warn("statement failed",
				zap.Int("step", i+1),
				zap.String("label", stmt.Label),
				zap.Error(err))
		} else {
			r.logger.Debug("statement applied",
				zap.Int("step", i+1),
				zap.String("label", stmt.Label),
				zap.Int64("rows", outcome.RowsAffected))
		}

		PrintOutcome(r.out, outcome)
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// Run выполняет пакет в одной транзакции, фиксирует ее согласно режиму
// и печатает итоговую проверку. Ошибки отдельных операторов в ошибку Run
// не превращаются, кроме режима atomic.
func (r *Runner) Run(ctx context.Context, batch *Batch) (*Result, error) {
	if batch == nil || len(batch.Steps) == 0 {
		return nil, ErrEmptyBatch
	}

	result := &Result{
		RunID:     r.runID,
		Batch:     batch.Name,
		Mode:      r.mode,
		StartedAt: time.Now(),
	}
	logger := r.logger.With(zap.String("batch", batch.Name), zap.Stringer("mode", r.mode))
	logger.Info("batch started", zap.Int("steps", len(batch.Steps)), zap.String("database", r.db.Path()))

	PrintHeader(r.out, result, r.db.Path())

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	result.Outcomes, err = r.Execute(ctx, tx, batch.Statements())
	if err != nil {
		tx.Rollback()
		logger.Error("batch interrupted, rolled back", zap.Error(err))
		return result, err
	}

	failed := len(result.Failed())
	var verifyErr error

	switch {
	case r.mode == ModeDryRun:
		// Проверка видит незафиксированные изменения своей транзакции
		result.Summaries, verifyErr = Verify(ctx, tx, batch.Verify.From, batch.Verify.To)
		if rbErr := tx.Rollback(); rbErr != nil {
			return result, fmt.Errorf("failed to roll back dry run: %w", rbErr)
		}

	case r.mode == ModeAtomic && failed > 0:
		if rbErr := tx.Rollback(); rbErr != nil {
			return result, fmt.Errorf("failed to roll back batch: %w", rbErr)
		}
		result.Summaries, verifyErr = Verify(ctx, r.db.GetDB(), batch.Verify.From, batch.Verify.To)

	default:
		if err := tx.Commit(); err != nil {
			logger.Error("commit failed", zap.Error(err))
			return result, fmt.Errorf("failed to commit batch: %w", err)
		}
		result.Committed = true
		result.Summaries, verifyErr = Verify(ctx, r.db.GetDB(), batch.Verify.From, batch.Verify.To)
	}

	result.FinishedAt = time.Now()
	PrintSummary(r.out, result)

	if verifyErr != nil {
		logger.Error("verification failed", zap.Error(verifyErr))
		return result, verifyErr
	}
	PrintVerification(r.out, result.Summaries)

	logger.Info("batch finished",
		zap.Bool("committed", result.Committed),
		zap.Int("errors", failed),
		zap.Int64("rows_changed", result.RowsChanged()),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))

	if r.mode == ModeAtomic && failed > 0 {
		return result, fmt.Errorf("%w: %d of %d statements failed, rolled back", ErrBatchFailed, failed, len(result.Outcomes))
	}

	return result, nil
}
