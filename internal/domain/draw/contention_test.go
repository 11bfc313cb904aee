package draw_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/storage/memory"
)

// contendedStore plays the part of concurrent writers: Claim reports a lost
// race claimsToLose times, and MarkPicked can report that another call for
// the same participant committed first. That winner is written once the
// losing transaction has rolled back.
type contendedStore struct {
	*memory.Store

	claimsToLose int
	claimCalls   int

	winnerPicker uuid.UUID
	winnerTarget uuid.UUID
}

func (s *contendedStore) Atomically(ctx context.Context, fn func(repos draw.Repositories) error) error {
	err := s.Store.Atomically(ctx, func(repos draw.Repositories) error {
		return fn(contendedRepos{Repositories: repos, store: s})
	})
	if err != nil && s.winnerTarget != uuid.Nil {
		s.commitWinner(ctx)
	}
	return err
}

func (s *contendedStore) commitWinner(ctx context.Context) {
	picker, target := s.winnerPicker, s.winnerTarget
	s.winnerPicker, s.winnerTarget = uuid.Nil, uuid.Nil

	entry, err := s.Store.Wishlists().GetByOwner(ctx, target)
	if err == nil {
		_, _ = s.Store.Wishlists().Claim(ctx, entry.ID, picker)
	}
	_, _ = s.Store.Participants().MarkPicked(ctx, picker, target, time.Now())
}

type contendedRepos struct {
	draw.Repositories
	store *contendedStore
}

func (r contendedRepos) Participants() draw.ParticipantRepository {
	return contendedParticipants{ParticipantRepository: r.Repositories.Participants(), store: r.store}
}

func (r contendedRepos) Wishlists() draw.WishlistRepository {
	return contendedWishlists{WishlistRepository: r.Repositories.Wishlists(), store: r.store}
}

type contendedWishlists struct {
	draw.WishlistRepository
	store *contendedStore
}

func (w contendedWishlists) Claim(ctx context.Context, entryID, pickerID uuid.UUID) (bool, error) {
	w.store.claimCalls++
	if w.store.claimsToLose > 0 {
		w.store.claimsToLose--
		return false, nil
	}
	return w.WishlistRepository.Claim(ctx, entryID, pickerID)
}

type contendedParticipants struct {
	draw.ParticipantRepository
	store *contendedStore
}

func (p contendedParticipants) MarkPicked(ctx context.Context, participantID, targetID uuid.UUID, at time.Time) (bool, error) {
	if p.store.winnerTarget != uuid.Nil && p.store.winnerPicker == participantID {
		return false, nil
	}
	return p.ParticipantRepository.MarkPicked(ctx, participantID, targetID, at)
}

func newContendedFixture(t *testing.T, opts ...draw.Option) (*fixture, *contendedStore) {
	t.Helper()
	store := &contendedStore{Store: memory.New()}
	return &fixture{store: store.Store, service: draw.NewService(store, draw.ModeClosed, opts...)}, store
}

func TestPickTargetReselectsAfterLostClaims(t *testing.T) {
	f, store := newContendedFixture(t)
	ctx := context.Background()
	a := f.participant(t, "A")
	b := f.participant(t, "B")
	f.submit(t, b, "Y")

	store.claimsToLose = 2

	pick, err := f.service.PickTarget(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Y", pick.Content)
	assert.Equal(t, 3, store.claimCalls)

	claimed, err := f.store.Wishlists().CountClaimed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)
}

func TestPickTargetGivesUpAfterMaxClaimAttempts(t *testing.T) {
	f, store := newContendedFixture(t, draw.WithMaxClaimAttempts(3))
	ctx := context.Background()
	a := f.participant(t, "A")
	b := f.participant(t, "B")
	f.submit(t, b, "Y")

	store.claimsToLose = 100

	_, err := f.service.PickTarget(ctx, a.ID)
	require.ErrorIs(t, err, draw.ErrNoEligibleTargets)
	assert.NotErrorIs(t, err, draw.ErrSelfPickRejected)
	assert.Equal(t, 3, store.claimCalls)

	stored, err := f.store.Participants().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPicked, "an exhausted draw must not record a pick")
}

func TestPickTargetLostMarkRollsBackAndReturnsWinner(t *testing.T) {
	f, store := newContendedFixture(t)
	ctx := context.Background()
	a := f.participant(t, "A")
	b := f.participant(t, "B")
	c := f.participant(t, "C")
	f.submit(t, b, "Y")
	f.submit(t, c, "Z")

	store.winnerPicker = a.ID
	store.winnerTarget = c.ID

	_, err := f.service.PickTarget(ctx, a.ID)

	var already *draw.AlreadyPickedError
	require.True(t, errors.As(err, &already), "unexpected error: %v", err)
	require.NotNil(t, already.Target)
	assert.Equal(t, c.ID, already.Target.OwnerID)
	assert.Equal(t, "Z", already.Target.Content)

	claimed, err := f.store.Wishlists().CountClaimed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed, "the losing claim must be rolled back")

	entry, err := f.store.Wishlists().GetByOwner(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.ClaimedBy)
	assert.Equal(t, a.ID, *entry.ClaimedBy)

	again, err := f.service.CurrentPick(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.OwnerID)
}
