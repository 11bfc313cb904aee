package wishlist

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxContentLength is the longest wishlist accepted, in runes
const MaxContentLength = 2000

// Redacted replaces hidden fields in the secret box listing
const Redacted = "********"

// Entry is the gift wishlist submitted by one participant
type Entry struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID  `json:"owner_id" gorm:"type:uuid;uniqueIndex;not null"`
	Content   string     `json:"content" gorm:"type:text;not null"`
	ClaimedBy *uuid.UUID `json:"claimed_by,omitempty" gorm:"type:uuid"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Entry) TableName() string {
	return "wishlist_entries"
}

// BeforeCreate sets a UUID before creating the record
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewEntry builds an entry owned by ownerID. Content is trimmed.
func NewEntry(ownerID uuid.UUID, content string) *Entry {
	return &Entry{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Content:   strings.TrimSpace(content),
		CreatedAt: time.Now().UTC(),
	}
}

// IsClaimed reports whether a closed draw already handed this entry out
func (e *Entry) IsClaimed() bool {
	return e.ClaimedBy != nil
}

// IsOwnedBy reports whether participantID wrote this entry
func (e *Entry) IsOwnedBy(participantID uuid.UUID) bool {
	return e.OwnerID == participantID
}
