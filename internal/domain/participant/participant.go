package participant

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant is a registered user who can submit a wishlist and draw one
type Participant struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string     `json:"name" gorm:"not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	HasPicked    bool       `json:"has_picked" gorm:"not null;default:false"`
	PickedTarget *uuid.UUID `json:"picked_target,omitempty" gorm:"type:uuid"`
	PickedAt     *time.Time `json:"picked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Participant) TableName() string {
	return "participants"
}

// BeforeCreate sets a UUID before creating the record
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// New creates a participant that has not picked yet
func New(name, email, passwordHash string) *Participant {
	return &Participant{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// State reports whether the participant is still waiting to draw
func (p *Participant) State() State {
	if p.HasPicked {
		return StatePicked
	}
	return StateNotPicked
}

// CanPick reports whether target is an acceptable assignment for p
func (p *Participant) CanPick(target uuid.UUID) bool {
	return !p.HasPicked && target != uuid.Nil && target != p.ID
}

// RecordPick applies the NotPicked -> Picked transition in memory.
// Stores persist the same transition with a conditional write.
func (p *Participant) RecordPick(target uuid.UUID, at time.Time) error {
	if p.HasPicked {
		return ErrAlreadyPicked
	}
	if target == uuid.Nil || target == p.ID {
		return ErrInvalidTarget
	}
	p.HasPicked = true
	p.PickedTarget = &target
	p.PickedAt = &at
	return nil
}

// Validate checks the pick invariants and the identity fields
func (p *Participant) Validate() error {
	if p.ID == uuid.Nil {
		return errors.New("participant id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("participant name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("participant email is required")
	}
	if p.HasPicked != (p.PickedTarget != nil) {
		return ErrInconsistentPick
	}
	if p.PickedTarget != nil && (*p.PickedTarget == p.ID || *p.PickedTarget == uuid.Nil) {
		return ErrInvalidTarget
	}
	return nil
}
