package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
)

// isAssignmentViolation reports a write rejected by the picked_target or
// claimed_by foreign keys or their CHECK constraints
func isAssignmentViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated)
}

var (
	_ draw.ParticipantRepository = (*PostgresParticipantRepository)(nil)
	_ draw.WishlistRepository    = (*PostgresWishlistRepository)(nil)
	_ draw.Store                 = (*Container)(nil)
	_ draw.ProgressReader        = (*Container)(nil)
	_ draw.Repositories          = (*TransactionContainer)(nil)
)
