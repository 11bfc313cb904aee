package draw

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
)

// Storage adapters translate driver errors into these sentinels
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateRecord = errors.New("duplicate record")
)

// ParticipantRepository persists participants and their pick status
type ParticipantRepository interface {
	Create(ctx context.Context, p *participant.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*participant.Participant, error)
	GetByEmail(ctx context.Context, email string) (*participant.Participant, error)
	// MarkPicked sets has_picked, picked_target and picked_at only if
	// has_picked was false. It reports false when another writer got there first.
	MarkPicked(ctx context.Context, participantID, targetID uuid.UUID, at time.Time) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountPicked(ctx context.Context) (int64, error)
}

// Eligibility narrows RandomEligible
type Eligibility struct {
	Exclude       []uuid.UUID // owner ids that must not be returned
	UnclaimedOnly bool
}

// Excludes reports whether ownerID is in the exclusion set
func (e Eligibility) Excludes(ownerID uuid.UUID) bool {
	for _, id := range e.Exclude {
		if id == ownerID {
			return true
		}
	}
	return false
}

// WishlistRepository persists wishlist entries
type WishlistRepository interface {
	Create(ctx context.Context, entry *wishlist.Entry) error
	ExistsForOwner(ctx context.Context, ownerID uuid.UUID) (bool, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*wishlist.Entry, error)
	List(ctx context.Context) ([]*wishlist.Entry, error)
	// RandomEligible returns one entry chosen uniformly at random, or
	// ErrRecordNotFound when nothing matches.
	RandomEligible(ctx context.Context, filter Eligibility) (*wishlist.Entry, error)
	// Claim marks the entry as drawn by pickerID only if it is unclaimed
	Claim(ctx context.Context, entryID, pickerID uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountClaimed(ctx context.Context) (int64, error)
}

// Repositories groups the repositories that share one transaction
type Repositories interface {
	Participants() ParticipantRepository
	Wishlists() WishlistRepository
}

// Store is a storage backend the engine can run atomic units against
type Store interface {
	Repositories
	// Atomically runs fn in a single transaction. Any error returned by fn
	// rolls back every write fn made.
	Atomically(ctx context.Context, fn func(repos Repositories) error) error
	Health(ctx context.Context) error
	Close() error
}

// Progress counts how far the draw has got
type Progress struct {
	Participants      int64 `json:"participants"`
	ParticipantsDrawn int64 `json:"participants_drawn"`
	Wishlists         int64 `json:"wishlists"`
	WishlistsClaimed  int64 `json:"wishlists_claimed"`
}

// ProgressReader is implemented by stores that can count progress in a
// single query. Stats falls back to the repository counters otherwise.
type ProgressReader interface {
	Progress(ctx context.Context) (Progress, error)
}

// ValidateAssignment guards MarkPicked implementations against nil or self targets
func ValidateAssignment(participantID, targetID uuid.UUID) error {
	if participantID == uuid.Nil || targetID == uuid.Nil || participantID == targetID {
		return ErrInvalidAssignment
	}
	return nil
}
