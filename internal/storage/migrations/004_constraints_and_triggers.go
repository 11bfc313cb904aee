package migrations

import "gorm.io/gorm"

// migration004Up adds referential and pick-consistency constraints, and a
// trigger that makes a recorded pick permanent
func migration004Up(db *gorm.DB) error {
	statements := []string{
		`ALTER TABLE participants
            ADD CONSTRAINT fk_participants_picked_target
            FOREIGN KEY (picked_target) REFERENCES participants(id)`,

		`ALTER TABLE participants
            ADD CONSTRAINT chk_participants_not_self
            CHECK (picked_target IS NULL OR picked_target <> id)`,

		`ALTER TABLE participants
            ADD CONSTRAINT chk_participants_pick_consistent
            CHECK (has_picked = (picked_target IS NOT NULL))`,

		`ALTER TABLE wishlist_entries
            ADD CONSTRAINT fk_wishlist_entries_owner
            FOREIGN KEY (owner_id) REFERENCES participants(id) ON DELETE CASCADE`,

		`ALTER TABLE wishlist_entries
            ADD CONSTRAINT fk_wishlist_entries_claimed_by
            FOREIGN KEY (claimed_by) REFERENCES participants(id)`,

		`ALTER TABLE wishlist_entries
            ADD CONSTRAINT chk_wishlist_entries_claim_not_owner
            CHECK (claimed_by IS NULL OR claimed_by <> owner_id)`,

		`ALTER TABLE wishlist_entries
            ADD CONSTRAINT chk_wishlist_entries_content_length
            CHECK (char_length(content) BETWEEN 1 AND 2000)`,

		`CREATE OR REPLACE FUNCTION prevent_pick_reset()
        RETURNS TRIGGER AS $$
        BEGIN
            IF OLD.has_picked AND (NOT NEW.has_picked OR NEW.picked_target IS DISTINCT FROM OLD.picked_target) THEN
                RAISE EXCEPTION 'participant % has already picked', OLD.id;
            END IF;
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,

		`CREATE TRIGGER trg_participants_prevent_pick_reset
            BEFORE UPDATE ON participants
            FOR EACH ROW EXECUTE FUNCTION prevent_pick_reset()`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration004Down removes the trigger and constraints
func migration004Down(db *gorm.DB) error {
	statements := []string{
		`DROP TRIGGER IF EXISTS trg_participants_prevent_pick_reset ON participants`,
		`DROP FUNCTION IF EXISTS prevent_pick_reset()`,
		`ALTER TABLE wishlist_entries DROP CONSTRAINT IF EXISTS chk_wishlist_entries_content_length`,
		`ALTER TABLE wishlist_entries DROP CONSTRAINT IF EXISTS chk_wishlist_entries_claim_not_owner`,
		`ALTER TABLE wishlist_entries DROP CONSTRAINT IF EXISTS fk_wishlist_entries_claimed_by`,
		`ALTER TABLE wishlist_entries DROP CONSTRAINT IF EXISTS fk_wishlist_entries_owner`,
		`ALTER TABLE participants DROP CONSTRAINT IF EXISTS chk_participants_pick_consistent`,
		`ALTER TABLE participants DROP CONSTRAINT IF EXISTS chk_participants_not_self`,
		`ALTER TABLE participants DROP CONSTRAINT IF EXISTS fk_participants_picked_target`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
