package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
	"github.com/gravadigital/wishdraw-api/internal/logger"
)

// PostgresWishlistRepository implements draw.WishlistRepository using GORM
type PostgresWishlistRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresWishlistRepository creates a new PostgreSQL wishlist repository
func NewPostgresWishlistRepository(db *gorm.DB) *PostgresWishlistRepository {
	return &PostgresWishlistRepository{
		db:  db,
		log: logger.Repository("wishlist"),
	}
}

func (r *PostgresWishlistRepository) Create(ctx context.Context, entry *wishlist.Entry) error {
	r.log.Debug("Creating wishlist entry", "owner_id", entry.OwnerID)

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return fmt.Errorf("wishlist for owner %s: %w", entry.OwnerID, draw.ErrDuplicateRecord)
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return fmt.Errorf("wishlist owner %s: %w", entry.OwnerID, draw.ErrRecordNotFound)
		}
		r.log.Error("Failed to create wishlist entry", "error", err, "owner_id", entry.OwnerID)
		return fmt.Errorf("failed to create wishlist entry: %w", err)
	}

	r.log.Info("Wishlist entry created successfully", "id", entry.ID, "owner_id", entry.OwnerID)
	return nil
}

func (r *PostgresWishlistRepository) ExistsForOwner(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&wishlist.Entry{}).Where("owner_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist: %w", err)
	}
	return count > 0, nil
}

func (r *PostgresWishlistRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*wishlist.Entry, error) {
	var entry wishlist.Entry
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, draw.ErrRecordNotFound
		}
		r.log.Error("Failed to get wishlist by owner", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to get wishlist by owner: %w", err)
	}
	return &entry, nil
}

func (r *PostgresWishlistRepository) List(ctx context.Context) ([]*wishlist.Entry, error) {
	var entries []*wishlist.Entry
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		r.log.Error("Failed to list wishlist entries", "error", err)
		return nil, fmt.Errorf("failed to list wishlist entries: %w", err)
	}
	return entries, nil
}

func (r *PostgresWishlistRepository) RandomEligible(ctx context.Context, filter draw.Eligibility) (*wishlist.Entry, error) {
	query := r.db.WithContext(ctx).Model(&wishlist.Entry{})

	if len(filter.Exclude) > 0 {
		ids := make([]string, len(filter.Exclude))
		for i, id := range filter.Exclude {
			ids[i] = id.String()
		}
		query = query.Where("owner_id <> ALL(?::uuid[])", pq.Array(ids))
	}
	if filter.UnclaimedOnly {
		query = query.Where("claimed_by IS NULL")
	}

	var entry wishlist.Entry
	if err := query.Order("random()").Limit(1).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, draw.ErrRecordNotFound
		}
		r.log.Error("Failed to select eligible wishlist", "error", err)
		return nil, fmt.Errorf("failed to select eligible wishlist: %w", err)
	}
	return &entry, nil
}

func (r *PostgresWishlistRepository) Claim(ctx context.Context, entryID, pickerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&wishlist.Entry{}).
		Where("id = ? AND claimed_by IS NULL AND owner_id <> ?", entryID, pickerID).
		Updates(map[string]any{
			"claimed_by": pickerID,
			"claimed_at": time.Now().UTC(),
		})
	if err := result.Error; err != nil {
		if isAssignmentViolation(err) {
			return false, draw.ErrInvalidAssignment
		}
		r.log.Error("Failed to claim wishlist entry", "id", entryID, "error", err)
		return false, fmt.Errorf("failed to claim wishlist entry: %w", err)
	}
	if result.RowsAffected == 1 {
		r.log.Debug("Wishlist entry claimed", "id", entryID, "picker", pickerID)
		return true, nil
	}

	var entry wishlist.Entry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, draw.ErrRecordNotFound
		}
		return false, fmt.Errorf("failed to load wishlist entry: %w", err)
	}
	if !entry.IsClaimed() && entry.OwnerID == pickerID {
		return false, draw.ErrInvalidAssignment
	}
	return false, nil
}

func (r *PostgresWishlistRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&wishlist.Entry{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count wishlists: %w", err)
	}
	return count, nil
}

func (r *PostgresWishlistRepository) CountClaimed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&wishlist.Entry{}).Where("claimed_by IS NOT NULL").Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count claimed wishlists: %w", err)
	}
	return count, nil
}
