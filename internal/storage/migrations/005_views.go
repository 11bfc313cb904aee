package migrations

import "gorm.io/gorm"

// migration005Up creates a view summarising draw progress
func migration005Up(db *gorm.DB) error {
	return db.Exec(`
        CREATE OR REPLACE VIEW draw_progress AS
        SELECT
            (SELECT COUNT(*) FROM participants) AS participants,
            (SELECT COUNT(*) FROM participants WHERE has_picked) AS participants_drawn,
            (SELECT COUNT(*) FROM wishlist_entries) AS wishlists,
            (SELECT COUNT(*) FROM wishlist_entries WHERE claimed_by IS NOT NULL) AS wishlists_claimed
    `).Error
}

// migration005Down drops the view
func migration005Down(db *gorm.DB) error {
	return db.Exec("DROP VIEW IF EXISTS draw_progress").Error
}
