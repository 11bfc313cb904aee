package migrations

import "gorm.io/gorm"

// migration001Up enables extensions
func migration001Up(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// migration001Down leaves uuid-ossp in place since other schemas may rely on it
func migration001Down(db *gorm.DB) error {
	return nil
}
