package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CatalogGroup представляет группу каталога
type CatalogGroup struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CategoryID    int64     `json:"category_id"`
	CreatorID     int64     `json:"creator_id"`
	IsOfficial    bool      `json:"is_official"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	ParentGroupID *int64    `json:"parent_group_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CatalogItem представляет элемент каталога (строка catalog_items)
type CatalogItem struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	CategoryID     int64     `json:"category_id"`
	CatalogGroupID *int64    `json:"catalog_group_id,omitempty"`
	OwnerID        int64     `json:"owner_id"`
	Status         string    `json:"status"`
	ImageURL       string    `json:"image_url,omitempty"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	Color          string    `json:"color,omitempty"`
	Icon           string    `json:"icon,omitempty"`
	IsPublic       bool      `json:"is_public"`
	LikeCount      int       `json:"like_count"`
	ViewCount      int       `json:"view_count"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const catalogItemSelect = `
	SELECT id, title, description, category_id, catalog_group_id, owner_id, status,
	       image_url, thumbnail_url, color, icon, is_public, like_count, view_count,
	       sort_order, created_at, updated_at
	FROM catalog_items
`

// AddCatalogGroup добавляет группу с заданным ID
func (db *DB) AddCatalogGroup(ctx context.Context, group CatalogGroup) error {
	query := `
		INSERT INTO catalog_groups (id, name, description, category_id, creator_id, is_official, color, icon, parent_group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.conn.ExecContext(ctx, query,
		group.ID, group.Name, nullString(group.Description), group.CategoryID, group.CreatorID,
		group.IsOfficial, group.Color, group.Icon, group.ParentGroupID)
	if err != nil {
		return fmt.Errorf("failed to add catalog group %d: %w", group.ID, err)
	}
	return nil
}

// AddCatalogItem добавляет элемент каталога. Если ID не задан, его назначает SQLite.
func (db *DB) AddCatalogItem(ctx context.Context, item CatalogItem) (int64, error) {
	status := item.Status
	if status == "" {
		status = "collected"
	}

	var id interface{}
	if item.ID > 0 {
		id = item.ID
	}

	query := `
		INSERT INTO catalog_items (id, title, description, category_id, catalog_group_id, owner_id, status,
		                           image_url, thumbnail_url, color, icon, is_public, like_count, view_count, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.conn.ExecContext(ctx, query,
		id, item.Title, nullString(item.Description), item.CategoryID, item.CatalogGroupID, item.OwnerID, status,
		nullString(item.ImageURL), nullString(item.ThumbnailURL), nullString(item.Color), nullString(item.Icon),
		item.IsPublic, item.LikeCount, item.ViewCount, item.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to add catalog item %q: %w", item.Title, err)
	}

	newID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get catalog item ID: %w", err)
	}
	return newID, nil
}

// GetCatalogItem получает элемент каталога по ID
func (db *DB) GetCatalogItem(ctx context.Context, id int64) (*CatalogItem, error) {
	row := db.conn.QueryRowContext(ctx, catalogItemSelect+" WHERE id = ?", id)
	item, err := scanCatalogItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get catalog item %d: %w", id, err)
	}
	return item, nil
}

// GetCatalogItemsByGroup получает элементы группы в порядке sort_order, id
func (db *DB) GetCatalogItemsByGroup(ctx context.Context, groupID int64) ([]*CatalogItem, error) {
	rows, err := db.conn.QueryContext(ctx, catalogItemSelect+" WHERE catalog_group_id = ? ORDER BY sort_order, id", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items of group %d: %w", groupID, err)
	}
	defer rows.Close()

	var items []*CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// CountCatalogItems возвращает общее количество элементов каталога
func (db *DB) CountCatalogItems(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count catalog items: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCatalogItem(row rowScanner) (*CatalogItem, error) {
	item := &CatalogItem{}
	var description, imageURL, thumbnailURL, color, icon sql.NullString
	var groupID sql.NullInt64

	err := row.Scan(
		&item.ID, &item.Title, &description, &item.CategoryID, &groupID, &item.OwnerID, &item.Status,
		&imageURL, &thumbnailURL, &color, &icon, &item.IsPublic, &item.LikeCount, &item.ViewCount,
		&item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Description = description.String
	item.ImageURL = imageURL.String
	item.ThumbnailURL = thumbnailURL.String
	item.Color = color.String
	item.Icon = icon.String
	if groupID.Valid {
		id := groupID.Int64
		item.CatalogGroupID = &id
	}

	return item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
