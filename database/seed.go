package database

import (
	"context"
	"fmt"
)

// Диапазон выпусков OGT в репетиционной базе
const (
	ogtFirstIssue = 49
	ogtLastIssue  = 60
	ogtGroupBase  = 15 // group_id = номер выпуска + 15
	ogtItemBase   = 25 // item_id = номер выпуска + 25
)

// OGTGroupID id группы выпуска OGT No.issue
func OGTGroupID(issue int) int64 {
	return int64(issue + ogtGroupBase)
}

// OGTItemID id исходного элемента выпуска OGT No.issue
func OGTItemID(issue int) int64 {
	return int64(issue + ogtItemBase)
}

// SeedOGTFixture заполняет базу состоянием каталога до корректировки:
// по одной группе и одному элементу "OGT No.N 티켓" на каждый выпуск 49-60.
// Схема должна быть создана заранее (InitCatalogSchema).
func SeedOGTFixture(ctx context.Context, db *DB) (int, error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	seeded := 0
	for issue := ogtFirstIssue; issue <= ogtLastIssue; issue++ {
		groupID := OGTGroupID(issue)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_groups (id, name, category_id, creator_id, is_official, color, icon)
			VALUES (?, ?, 1, 1, 1, '#1B1B1B', 'ticket')
		`, groupID, fmt.Sprintf("OGT No.%d", issue))
		if err != nil {
			return 0, fmt.Errorf("failed to seed group %d: %w", groupID, err)
		}

		image := fmt.Sprintf("https://example.com/ogt/%d.webp", issue)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO catalog_items (id, title, description, category_id, catalog_group_id, owner_id, status,
			                           image_url, thumbnail_url, color, icon, is_public, sort_order)
			VALUES (?, ?, ?, 1, ?, 1, 'collected', ?, ?, '#1B1B1B', 'ticket', 1, ?)
		`, OGTItemID(issue), fmt.Sprintf("OGT No.%d 티켓", issue), fmt.Sprintf("OGT No.%d", issue),
			groupID, image, image, issue)
		if err != nil {
			return 0, fmt.Errorf("failed to seed item %d: %w", OGTItemID(issue), err)
		}
		seeded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit fixture: %w", err)
	}
	return seeded, nil
}
