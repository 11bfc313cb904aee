package migrations

import "gorm.io/gorm"

// migration003Up creates indexes used by the draw
func migration003Up(db *gorm.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_participants_has_picked ON participants(has_picked)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_picked_target ON participants(picked_target) WHERE picked_target IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_wishlist_entries_unclaimed ON wishlist_entries(owner_id) WHERE claimed_by IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_wishlist_entries_claimed_by ON wishlist_entries(claimed_by) WHERE claimed_by IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_wishlist_entries_created_at ON wishlist_entries(created_at)`,
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration003Down drops the indexes
func migration003Down(db *gorm.DB) error {
	indexes := []string{
		"idx_wishlist_entries_created_at",
		"idx_wishlist_entries_claimed_by",
		"idx_wishlist_entries_unclaimed",
		"idx_participants_picked_target",
		"idx_participants_has_picked",
	}

	for _, index := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + index).Error; err != nil {
			return err
		}
	}
	return nil
}
