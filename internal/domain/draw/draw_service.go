package draw

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/validation"
)

// DefaultMaxClaimAttempts bounds candidate reselection after a lost claim
const DefaultMaxClaimAttempts = 5

// errPickRaceLost means a concurrent call for the same participant committed
// its pick first. The transaction is rolled back and the caller is answered
// with the winner's target.
var errPickRaceLost = errors.New("concurrent pick already recorded")

// Pick is a drawn wishlist as seen by the participant who drew it
type Pick struct {
	EntryID  uuid.UUID  `json:"entry_id"`
	OwnerID  uuid.UUID  `json:"owner_id"`
	Name     string     `json:"name"`
	Content  string     `json:"content"`
	PickedAt *time.Time `json:"picked_at,omitempty"`
}

// EntryView is one slot of the secret box listing
type EntryView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Content  string    `json:"content"`
	Revealed bool      `json:"revealed"`
}

// Stats summarises draw progress
type Stats struct {
	Mode Mode `json:"mode"`
	Progress
}

// Service runs wishlist submission and the random draw
type Service struct {
	store            Store
	mode             Mode
	maxClaimAttempts int
	now              func() time.Time
	validator        validation.WishlistValidation
	log              *log.Logger
}

// Option customises a Service
type Option func(*Service)

// WithMaxClaimAttempts overrides DefaultMaxClaimAttempts
func WithMaxClaimAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxClaimAttempts = n
		}
	}
}

// NewService creates a draw service on top of store
func NewService(store Store, mode Mode, opts ...Option) *Service {
	s := &Service{
		store:            store,
		mode:             mode,
		maxClaimAttempts: DefaultMaxClaimAttempts,
		// millisecond precision survives every store unchanged
		now:              func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		validator:        validation.WishlistValidation{},
		log:              logger.Service("draw"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the configured draw mode
func (s *Service) Mode() Mode {
	return s.mode
}

// SubmitWishlist stores the one wishlist a participant may submit
func (s *Service) SubmitWishlist(ctx context.Context, participantID uuid.UUID, content string) (*wishlist.Entry, error) {
	content = strings.TrimSpace(content)
	if participantID == uuid.Nil {
		return nil, invalidInput("participant id is required")
	}
	if err := s.validator.ValidateContent(content, wishlist.MaxContentLength); err != nil {
		return nil, invalidInput(err.Error())
	}

	if _, err := s.store.Participants().GetByID(ctx, participantID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, storeFailure("load participant", err)
	}

	exists, err := s.store.Wishlists().ExistsForOwner(ctx, participantID)
	if err != nil {
		return nil, storeFailure("check existing wishlist", err)
	}
	if exists {
		s.log.Warn("Duplicate wishlist submission", "participant_id", participantID)
		return nil, ErrDuplicateSubmission
	}

	entry := wishlist.NewEntry(participantID, content)
	if err := s.store.Wishlists().Create(ctx, entry); err != nil {
		// lost a race with a concurrent submission from the same owner
		if errors.Is(err, ErrDuplicateRecord) {
			s.log.Warn("Duplicate wishlist submission caught by store", "participant_id", participantID)
			return nil, ErrDuplicateSubmission
		}
		return nil, storeFailure("create wishlist", err)
	}

	s.log.Info("Wishlist submitted", "participant_id", participantID, "entry_id", entry.ID)
	return entry, nil
}

// PickTarget draws a random wishlist for participantID and records it.
// A participant who already picked gets an *AlreadyPickedError carrying the
// earlier result; nothing is ever reassigned.
func (s *Service) PickTarget(ctx context.Context, participantID uuid.UUID) (*Pick, error) {
	if participantID == uuid.Nil {
		return nil, invalidInput("participant id is required")
	}

	var pick *Pick
	err := s.store.Atomically(ctx, func(repos Repositories) error {
		var err error
		pick, err = s.pickWithin(ctx, repos, participantID)
		return err
	})

	if errors.Is(err, errPickRaceLost) {
		s.log.Warn("Concurrent pick lost the race", "participant_id", participantID)
		prior, loadErr := s.CurrentPick(ctx, participantID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, &AlreadyPickedError{Target: prior}
	}
	if err != nil {
		return nil, classify("pick target", err)
	}

	s.log.Info("Wishlist picked",
		"participant_id", participantID,
		"entry_id", pick.EntryID,
		"mode", s.mode)
	return pick, nil
}

// pickWithin is the atomic unit: check, select, claim, mark
func (s *Service) pickWithin(ctx context.Context, repos Repositories, participantID uuid.UUID) (*Pick, error) {
	picker, err := repos.Participants().GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, storeFailure("load participant", err)
	}

	if picker.HasPicked {
		prior, err := s.resolvePick(ctx, repos, picker)
		if err != nil {
			return nil, err
		}
		return nil, &AlreadyPickedError{Target: prior}
	}

	filter := Eligibility{
		Exclude:       []uuid.UUID{picker.ID},
		UnclaimedOnly: s.mode == ModeClosed,
	}

	for attempt := 1; attempt <= s.maxClaimAttempts; attempt++ {
		entry, err := repos.Wishlists().RandomEligible(ctx, filter)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, s.noTargets(ctx, repos, picker)
		}
		if err != nil {
			return nil, storeFailure("select wishlist", err)
		}
		if !picker.CanPick(entry.OwnerID) {
			s.log.Error("Store returned the picker's own wishlist", "participant_id", picker.ID)
			return nil, selfPickRejected
		}

		if s.mode == ModeClosed {
			claimed, err := repos.Wishlists().Claim(ctx, entry.ID, picker.ID)
			if err != nil {
				return nil, storeFailure("claim wishlist", err)
			}
			if !claimed {
				s.log.Debug("Wishlist claimed by someone else, reselecting",
					"participant_id", picker.ID, "entry_id", entry.ID, "attempt", attempt)
				continue
			}
		}

		pickedAt := s.now()
		marked, err := repos.Participants().MarkPicked(ctx, picker.ID, entry.OwnerID, pickedAt)
		if err != nil {
			if errors.Is(err, ErrInvalidAssignment) {
				return nil, err
			}
			return nil, storeFailure("mark picked", err)
		}
		if !marked {
			return nil, errPickRaceLost
		}

		owner, err := repos.Participants().GetByID(ctx, entry.OwnerID)
		if err != nil {
			return nil, storeFailure("load wishlist owner", err)
		}

		return &Pick{
			EntryID:  entry.ID,
			OwnerID:  owner.ID,
			Name:     owner.Name,
			Content:  entry.Content,
			PickedAt: &pickedAt,
		}, nil
	}

	s.log.Warn("Gave up after repeated claim contention",
		"participant_id", picker.ID, "attempts", s.maxClaimAttempts)
	return nil, ErrNoEligibleTargets
}

// noTargets tells "nothing left" apart from "only your own wishlist is left"
func (s *Service) noTargets(ctx context.Context, repos Repositories, picker *participant.Participant) error {
	own, err := repos.Wishlists().GetByOwner(ctx, picker.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return ErrNoEligibleTargets
	}
	if err != nil {
		return storeFailure("load own wishlist", err)
	}
	if s.mode == ModeClosed && own.IsClaimed() {
		return ErrNoEligibleTargets
	}
	return selfPickRejected
}

// resolvePick loads the target recorded on picker
func (s *Service) resolvePick(ctx context.Context, repos Repositories, picker *participant.Participant) (*Pick, error) {
	if !picker.HasPicked || picker.PickedTarget == nil {
		return nil, ErrNotPickedYet
	}

	owner, err := repos.Participants().GetByID(ctx, *picker.PickedTarget)
	if err != nil {
		return nil, storeFailure("load picked participant", err)
	}

	pick := &Pick{
		OwnerID:  owner.ID,
		Name:     owner.Name,
		PickedAt: picker.PickedAt,
	}

	entry, err := repos.Wishlists().GetByOwner(ctx, owner.ID)
	switch {
	case err == nil:
		pick.EntryID = entry.ID
		pick.Content = entry.Content
	case errors.Is(err, ErrRecordNotFound):
		s.log.Warn("Picked participant has no wishlist", "participant_id", picker.ID, "target", owner.ID)
	default:
		return nil, storeFailure("load picked wishlist", err)
	}

	return pick, nil
}

// CurrentPick returns what participantID drew, or ErrNotPickedYet
func (s *Service) CurrentPick(ctx context.Context, participantID uuid.UUID) (*Pick, error) {
	p, err := s.store.Participants().GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, storeFailure("load participant", err)
	}
	return s.resolvePick(ctx, s.store, p)
}

// ListEntries returns the secret box as viewerID sees it: every other
// participant's wishlist still in play, redacted unless the viewer drew it.
func (s *Service) ListEntries(ctx context.Context, viewerID uuid.UUID) ([]EntryView, error) {
	viewer, err := s.store.Participants().GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, storeFailure("load participant", err)
	}

	entries, err := s.store.Wishlists().List(ctx)
	if err != nil {
		return nil, storeFailure("list wishlists", err)
	}

	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		if entry.IsOwnedBy(viewer.ID) {
			continue
		}

		revealed := viewer.HasPicked && viewer.PickedTarget != nil && *viewer.PickedTarget == entry.OwnerID
		if s.mode == ModeClosed && entry.IsClaimed() && !revealed {
			continue
		}

		view := EntryView{
			ID:      entry.ID,
			Name:    wishlist.Redacted,
			Content: wishlist.Redacted,
		}
		if revealed {
			owner, err := s.store.Participants().GetByID(ctx, entry.OwnerID)
			if err != nil {
				return nil, storeFailure("load wishlist owner", err)
			}
			view.Name = owner.Name
			view.Content = entry.Content
			view.Revealed = true
		}
		views = append(views, view)
	}

	return views, nil
}

// Stats reports how far the draw has progressed
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Mode: s.mode}

	if reader, ok := s.store.(ProgressReader); ok {
		progress, err := reader.Progress(ctx)
		if err != nil {
			return nil, storeFailure("read draw progress", err)
		}
		stats.Progress = progress
		return stats, nil
	}

	counters := []struct {
		name string
		dst  *int64
		fn   func(context.Context) (int64, error)
	}{
		{"participants", &stats.Participants, s.store.Participants().Count},
		{"participants_drawn", &stats.ParticipantsDrawn, s.store.Participants().CountPicked},
		{"wishlists", &stats.Wishlists, s.store.Wishlists().Count},
		{"wishlists_claimed", &stats.WishlistsClaimed, s.store.Wishlists().CountClaimed},
	}

	for _, c := range counters {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, storeFailure("count "+c.name, err)
		}
		*c.dst = n
	}

	return stats, nil
}

// classify keeps domain errors as they are and wraps everything else as a
// store failure
func classify(op string, err error) error {
	var already *AlreadyPickedError
	switch {
	case errors.As(err, &already),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNoEligibleTargets),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrNotPickedYet),
		errors.Is(err, ErrInvalidAssignment),
		errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return storeFailure(op, err)
	}
}
