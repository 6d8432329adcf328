package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Имена драйверов database/sql
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, требует CGO
	DriverModernc = "sqlite"  // modernc.org/sqlite, чистый Go
)

// DBConfig настройки подключения
type DBConfig struct {
	Driver          string
	BusyTimeout     time.Duration
	OpenRetries     int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB обертка для работы с базой каталога
type DB struct {
	conn   *sql.DB
	driver string
	path   string
}

// NewDB создает новое подключение к базе данных
func NewDB(dbPath string) (*DB, error) {
	return NewDBWithConfig(dbPath, DBConfig{})
}

// NewDBWithConfig создает новое подключение к базе данных с конфигурацией.
// Схема не создается: утилита работает с уже существующей базой.
func NewDBWithConfig(dbPath string, config DBConfig) (*DB, error) {
	driver := config.Driver
	if driver == "" {
		driver = DriverMattn
	}
	if driver != DriverMattn && driver != DriverModernc {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, buildDSN(driver, dbPath, config.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Одно соединение: все операторы идут в одной транзакции,
	// а для ":memory:" каждое новое соединение - это новая пустая база
	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(1)
	}

	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(1)
	}

	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else if dbPath != ":memory:" {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	attempts := uint(1)
	if config.OpenRetries > 0 {
		attempts += uint(config.OpenRetries)
	}
	err = retry.Do(
		conn.Ping,
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsBusy),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn, driver: driver, path: dbPath}, nil
}

// buildDSN добавляет busy timeout в строку подключения в формате драйвера
func buildDSN(driver, dbPath string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 || dbPath == ":memory:" {
		return dbPath
	}

	ms := busyTimeout.Milliseconds()
	params := url.Values{}
	switch driver {
	case DriverModernc:
		params.Set("_pragma", fmt.Sprintf("busy_timeout(%d)", ms))
	default:
		params.Set("_busy_timeout", fmt.Sprintf("%d", ms))
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + params.Encode()
}

// IsBusy сообщает, что база заблокирована другим процессом
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// Close закрывает подключение к базе данных
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *DB) GetDB() *sql.DB {
	return db.conn
}

// Driver возвращает имя используемого драйвера
func (db *DB) Driver() string {
	return db.driver
}

// Path возвращает путь к файлу базы
func (db *DB) Path() string {
	return db.path
}

// BeginTx открывает транзакцию на единственном соединении
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Exec выполняет запрос без возврата строк
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query выполняет запрос и возвращает строки
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow выполняет запрос и возвращает одну строку
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// BackupTo сохраняет согласованную копию базы в файл dst (VACUUM INTO).
// Файл dst не должен существовать.
func (db *DB) BackupTo(ctx context.Context, dst string) error {
	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("failed to back up database to %s: %w", dst, err)
	}
	return nil
}
