// Package correction выполняет пакеты корректировок каталога: упорядоченный
// список защищенных операторов INSERT/UPDATE, одна транзакция, отчет о проверке.
//
// Каждый оператор несет собственное условие (существует исходная строка, нет
// строки с таким же названием в группе), поэтому повторный запуск пакета
// ничего не меняет.
package correction

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultStatus статус новых элементов каталога
const DefaultStatus = "collected"

// Statement один оператор пакета
type Statement struct {
	Label string
	Query string
	Args  []interface{}
}

// CopyItem создает новый элемент на основе существующего: общие поля
// копируются из исходной строки, название, описание, статус и картинки
// задаются явно.
type CopyItem struct {
	SourceID     int64  `yaml:"source_id"`
	GroupID      int64  `yaml:"group_id"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Status       string `yaml:"status,omitempty"`
	ImageURL     string `yaml:"image_url,omitempty"`
	ThumbnailURL string `yaml:"thumbnail_url,omitempty"`
}

// RenameItem переименовывает элемент, если его текущее название совпадает с From
type RenameItem struct {
	ID   int64  `yaml:"id"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Validate проверяет параметры копирования
func (c CopyItem) Validate() error {
	if c.SourceID <= 0 {
		return errors.New("copy: source_id must be positive")
	}
	if c.GroupID <= 0 {
		return errors.New("copy: group_id must be positive")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("copy: title is required")
	}
	if c.ThumbnailURL != "" && c.ImageURL == "" {
		return errors.New("copy: thumbnail_url requires image_url")
	}
	return nil
}

// Validate проверяет параметры переименования
func (r RenameItem) Validate() error {
	if r.ID <= 0 {
		return errors.New("rename: id must be positive")
	}
	if r.From == "" || strings.TrimSpace(r.To) == "" {
		return errors.New("rename: from and to are required")
	}
	if r.From == r.To {
		return errors.New("rename: from and to are equal")
	}
	return nil
}

// Statement строит защищенный INSERT ... SELECT.
// Строка добавляется, только если исходный элемент существует и лежит в группе,
// а в группе еще нет элемента с таким названием.
func (c CopyItem) Statement(label string) Statement {
	status := c.Status
	if status == "" {
		status = DefaultStatus
	}

	imageExpr, thumbExpr := "ci.image_url", "ci.thumbnail_url"
	args := []interface{}{c.Title, c.Description, status}
	if c.ImageURL != "" {
		thumb := c.ThumbnailURL
		if thumb == "" {
			thumb = c.ImageURL
		}
		imageExpr, thumbExpr = "?", "?"
		args = append(args, c.ImageURL, thumb)
	}
	args = append(args, c.SourceID, c.GroupID, c.GroupID, c.Title)

	query := fmt.Sprintf(`INSERT INTO catalog_items (title, description, category_id, catalog_group_id, owner_id, status,
		image_url, thumbnail_url, color, icon, is_public, like_count, view_count, sort_order, created_at, updated_at)
	SELECT ?, ?, ci.category_id, ci.catalog_group_id, ci.owner_id, ?,
		%s, %s, ci.color, ci.icon, 1, 0, 0, ci.sort_order, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
	FROM catalog_items ci
	WHERE ci.id = ? AND ci.catalog_group_id = ?
	AND NOT EXISTS (SELECT 1 FROM catalog_items WHERE catalog_group_id = ? AND title = ?)`, imageExpr, thumbExpr)

	return Statement{Label: label, Query: query, Args: args}
}

// Statement строит UPDATE с проверкой текущего названия
func (r RenameItem) Statement(label string) Statement {
	return Statement{
		Label: label,
		Query: "UPDATE catalog_items SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND title = ?",
		Args:  []interface{}{r.To, r.ID, r.From},
	}
}
