package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"otbookfix/config"
	"otbookfix/correction"
	"otbookfix/database"
)

// app состояние одного запуска CLI
type app struct {
	v          *viper.Viper
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	runID  string
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "catalogfix",
		Short: "Корректировка элементов каталога в SQLite базе otbook",
		Long: `catalogfix выполняет пакет защищенных операторов INSERT/UPDATE над catalog_items
в одной транзакции и печатает итоговую проверку по группам каталога.

Каждый оператор проверяет собственное условие, поэтому повторный запуск
пакета ничего не меняет.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "файл конфигурации (yaml, toml, json)")
	flags.String("db", "", "путь к файлу базы (по умолчанию otbook.sqlite)")
	flags.String("driver", "", "драйвер SQLite: sqlite3 (cgo) или sqlite (чистый Go)")
	flags.String("batch", "", "YAML файл пакета (по умолчанию встроенный "+correction.DefaultBatchName+")")
	flags.String("log-format", "", "формат логов: console или json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "подробные логи")

	a.bind(flags, "database_path", "db")
	a.bind(flags, "driver", "driver")
	a.bind(flags, "batch_file", "batch")
	a.bind(flags, "log_format", "log-format")

	rootCmd.AddCommand(
		newApplyCmd(a),
		newVerifyCmd(a),
		newListCmd(a),
		newCheckCmd(a),
	)

	return rootCmd
}

func (a *app) bind(flags *pflag.FlagSet, key, name string) {
	if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// init загружает конфигурацию и создает логгер
func (a *app) init() error {
	cfg, err := config.LoadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	a.runID = uuid.NewString()
	logger, err := newLogger(cfg, a.errOut)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger.With(zap.String("run_id", a.runID))

	return nil
}

func newLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if cfg.LogFormat == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}

// openDatabase открывает существующую базу и проверяет колонки catalog_items
func (a *app) openDatabase(cmd *cobra.Command) (*database.DB, error) {
	path := a.cfg.DatabasePath
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("database file %s: %w", path, err)
		}
	}

	db, err := database.NewDBWithConfig(path, a.cfg.DBConfig())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("database opened", zap.String("path", path), zap.String("driver", db.Driver()))

	missing, err := db.MissingCatalogColumns(cmd.Context())
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(missing) > 0 {
		db.Close()
		return nil, &missingColumnsError{columns: missing}
	}

	return db, nil
}

type missingColumnsError struct {
	columns []string
}

func (e *missingColumnsError) Error() string {
	return fmt.Sprintf("catalog_items is missing columns: %v", e.columns)
}

func newApplyCmd(a *app) *cobra.Command {
	var dryRun, atomic, backup bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Выполнить пакет корректировок и итоговую проверку",
		Long: `Выполняет операторы пакета по порядку в одной транзакции.
Ошибка оператора печатается и не прерывает пакет. По умолчанию транзакция
фиксируется всегда; --atomic откатывает ее при любой ошибке, --dry-run
откатывает всегда и показывает проверку по незафиксированным данным.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun && atomic {
				return errors.New("--dry-run and --atomic are mutually exclusive")
			}

			batch, err := correction.LoadBatch(a.cfg.BatchFile)
			if err != nil {
				return err
			}

			db, err := a.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if backup && !dryRun {
				dst := fmt.Sprintf("%s.backup-%s", a.cfg.DatabasePath, time.Now().Format("20060102-150405"))
				if err := db.BackupTo(cmd.Context(), dst); err != nil {
					return err
				}
				a.logger.Info("backup created", zap.String("path", dst))
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Резервная копия: %s\n", dst)
			}

			mode := correction.ModeCommit
			switch {
			case dryRun:
				mode = correction.ModeDryRun
			case atomic:
				mode = correction.ModeAtomic
			}

			runner := correction.NewRunner(db,
				correction.WithLogger(a.logger),
				correction.WithOutput(cmd.OutOrStdout()),
				correction.WithMode(mode),
				correction.WithRunID(a.runID),
			)
			_, err = runner.Run(cmd.Context(), batch)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "выполнить и откатить, показав итоговую проверку")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "откатить весь пакет, если хотя бы один оператор упал")
	cmd.Flags().BoolVar(&backup, "backup", false, "перед запуском сохранить копию базы рядом с файлом")

	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Только итоговая проверка по группам каталога",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("from") || !cmd.Flags().Changed("to") {
				batch, err := correction.LoadBatch(a.cfg.BatchFile)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("from") {
					from = batch.Verify.From
				}
				if !cmd.Flags().Changed("to") {
					to = batch.Verify.To
				}
			}
			if from > to {
				return fmt.Errorf("empty sort_order range %d..%d", from, to)
			}

			db, err := a.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			summaries, err := correction.Verify(cmd.Context(), db.GetDB(), from, to)
			if err != nil {
				return err
			}
			correction.PrintVerification(cmd.OutOrStdout(), summaries)
			return nil
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "нижняя граница sort_order (по умолчанию из пакета)")
	cmd.Flags().IntVar(&to, "to", 0, "верхняя граница sort_order (по умолчанию из пакета)")

	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать операторы пакета без выполнения",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := correction.LoadBatch(a.cfg.BatchFile)
			if err != nil {
				return err
			}
			correction.PrintStatements(cmd.OutOrStdout(), batch)
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Проверить, что в catalog_items есть все нужные колонки",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase(cmd)
			if err != nil {
				var missing *missingColumnsError
				if errors.As(err, &missing) {
					fmt.Fprintln(cmd.OutOrStdout(), "✗ В catalog_items не хватает колонок:")
					for _, name := range missing.columns {
						fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
					}
				}
				return err
			}
			defer db.Close()

			count, err := db.CountCatalogItems(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Схема catalog_items в порядке, элементов: %d\n", count)
			return nil
		},
	}
}
