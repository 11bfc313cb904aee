package migrations

import (
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
)

// AllModels returns every model managed by AutoMigrate, parents first
func AllModels() []any {
	return []any{
		&participant.Participant{},
		&wishlist.Entry{},
	}
}

// Tables lists the managed tables in drop order
func Tables() []string {
	return []string{
		wishlist.Entry{}.TableName(),
		participant.Participant{}.TableName(),
	}
}
