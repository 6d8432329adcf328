package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// CatalogItemColumns колонки catalog_items, которые читают и пишут корректировки
var CatalogItemColumns = []string{
	"id",
	"title",
	"description",
	"category_id",
	"catalog_group_id",
	"owner_id",
	"status",
	"image_url",
	"thumbnail_url",
	"color",
	"icon",
	"is_public",
	"like_count",
	"view_count",
	"sort_order",
	"created_at",
	"updated_at",
}

// InitCatalogSchema создает таблицы каталога в той форме, в которой их ведет сервер.
// Рабочая база уже содержит эти таблицы; функция нужна для тестовых
// и репетиционных баз.
func InitCatalogSchema(db *sql.DB) error {
	schema := `
	-- Группы каталога
	CREATE TABLE IF NOT EXISTS catalog_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(200) NOT NULL,
		description TEXT,
		category_id INTEGER NOT NULL,
		creator_id INTEGER NOT NULL,
		is_official BOOLEAN NOT NULL DEFAULT 0,
		color VARCHAR(50) NOT NULL DEFAULT '',
		icon VARCHAR(50) NOT NULL DEFAULT '',
		thumbnail_url VARCHAR(500),
		is_public BOOLEAN NOT NULL DEFAULT 1,
		status VARCHAR(20) NOT NULL DEFAULT 'published',
		view_count INTEGER NOT NULL DEFAULT 0,
		ticket_count INTEGER NOT NULL DEFAULT 0,
		parent_group_id INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(parent_group_id) REFERENCES catalog_groups(id)
	);

	-- Элементы каталога
	CREATE TABLE IF NOT EXISTS catalog_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(200) NOT NULL,
		description TEXT,
		category_id INTEGER NOT NULL,
		catalog_group_id INTEGER,
		owner_id INTEGER NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'collected',
		image_url VARCHAR(500),
		thumbnail_url VARCHAR(500),
		color VARCHAR(50),
		icon VARCHAR(50),
		is_public BOOLEAN NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		like_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(catalog_group_id) REFERENCES catalog_groups(id)
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_items_category_id ON catalog_items(category_id);
	CREATE INDEX IF NOT EXISTS idx_catalog_items_catalog_group_id ON catalog_items(catalog_group_id);
	CREATE INDEX IF NOT EXISTS idx_catalog_items_owner_id ON catalog_items(owner_id);
	CREATE INDEX IF NOT EXISTS idx_catalog_items_status ON catalog_items(status);
	CREATE INDEX IF NOT EXISTS idx_catalog_groups_parent_group_id ON catalog_groups(parent_group_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return nil
}

// TableColumns возвращает имена колонок таблицы через PRAGMA table_info
func TableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, dtype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &dtype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		columns[name] = true
	}

	return columns, rows.Err()
}

// MissingCatalogColumns возвращает отсутствующие в catalog_items колонки.
// Если таблицы нет совсем, в ответе будут все колонки.
func (db *DB) MissingCatalogColumns(ctx context.Context) ([]string, error) {
	columns, err := TableColumns(ctx, db.conn, "catalog_items")
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range CatalogItemColumns {
		if !columns[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	return missing, nil
}
