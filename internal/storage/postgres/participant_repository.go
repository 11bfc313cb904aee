package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/logger"
)

// PostgresParticipantRepository implements draw.ParticipantRepository using GORM
type PostgresParticipantRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresParticipantRepository creates a new PostgreSQL participant repository
func NewPostgresParticipantRepository(db *gorm.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{
		db:  db,
		log: logger.Repository("participant"),
	}
}

func (r *PostgresParticipantRepository) Create(ctx context.Context, p *participant.Participant) error {
	r.log.Debug("Creating participant", "email", p.Email, "name", p.Name)

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := p.Validate(); err != nil {
		r.log.Error("Participant validation failed", "error", err)
		return fmt.Errorf("participant validation failed: %w", err)
	}
	p.Email = participant.NormalizeEmail(p.Email)

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Debug("Participant with email already exists", "email", p.Email)
			return fmt.Errorf("participant with email %s: %w", p.Email, draw.ErrDuplicateRecord)
		}
		r.log.Error("Failed to create participant", "error", err, "email", p.Email)
		return fmt.Errorf("failed to create participant: %w", err)
	}

	r.log.Info("Participant created successfully", "id", p.ID, "email", p.Email)
	return nil
}

func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	var p participant.Participant
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("Participant not found", "id", id)
			return nil, draw.ErrRecordNotFound
		}
		r.log.Error("Failed to get participant by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get participant by ID: %w", err)
	}
	return &p, nil
}

func (r *PostgresParticipantRepository) GetByEmail(ctx context.Context, email string) (*participant.Participant, error) {
	var p participant.Participant
	err := r.db.WithContext(ctx).Where("email = ?", participant.NormalizeEmail(email)).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, draw.ErrRecordNotFound
		}
		r.log.Error("Failed to get participant by email", "error", err)
		return nil, fmt.Errorf("failed to get participant by email: %w", err)
	}
	return &p, nil
}

func (r *PostgresParticipantRepository) MarkPicked(ctx context.Context, participantID, targetID uuid.UUID, at time.Time) (bool, error) {
	if err := draw.ValidateAssignment(participantID, targetID); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&participant.Participant{}).
		Where("id = ? AND has_picked = ?", participantID, false).
		Updates(map[string]any{
			"has_picked":    true,
			"picked_target": targetID,
			"picked_at":     at.UTC(),
			"updated_at":    time.Now().UTC(),
		})
	if err := result.Error; err != nil {
		if isAssignmentViolation(err) {
			return false, draw.ErrInvalidAssignment
		}
		r.log.Error("Failed to mark participant picked", "id", participantID, "error", err)
		return false, fmt.Errorf("failed to mark participant picked: %w", err)
	}
	if result.RowsAffected == 1 {
		r.log.Debug("Participant marked picked", "id", participantID, "target", targetID)
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&participant.Participant{}).Where("id = ?", participantID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	if count == 0 {
		return false, draw.ErrRecordNotFound
	}
	return false, nil
}

func (r *PostgresParticipantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&participant.Participant{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (r *PostgresParticipantRepository) CountPicked(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&participant.Participant{}).Where("has_picked = ?", true).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count picked participants: %w", err)
	}
	return count, nil
}
