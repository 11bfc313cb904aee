// Package memory provides an in-process store for development and tests.
package memory

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
	"github.com/gravadigital/wishdraw-api/internal/logger"
)

type dataset struct {
	participants map[uuid.UUID]*participant.Participant
	byEmail      map[string]uuid.UUID
	entries      map[uuid.UUID]*wishlist.Entry
	byOwner      map[uuid.UUID]uuid.UUID
	entryOrder   []uuid.UUID
}

// Store keeps everything in maps behind one mutex. Atomically holds the
// mutex for the whole unit and undoes its writes on error.
type Store struct {
	mu   sync.Mutex
	data *dataset
	rng  *rand.Rand
	log  *log.Logger
}

// Option customises a Store
type Option func(*Store)

// WithRand fixes the random source, for reproducible draws in tests
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		data: &dataset{
			participants: make(map[uuid.UUID]*participant.Participant),
			byEmail:      make(map[string]uuid.UUID),
			entries:      make(map[uuid.UUID]*wishlist.Entry),
			byOwner:      make(map[uuid.UUID]uuid.UUID),
		},
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		log: logger.Repository("memory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// txState is non-nil while Atomically holds the lock
type txState struct {
	undo []func()
}

func (tx *txState) onRollback(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// with runs fn against the dataset, taking the lock unless a transaction
// already holds it
func (s *Store) with(ctx context.Context, tx *txState, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

// Participants returns the participant repository
func (s *Store) Participants() draw.ParticipantRepository {
	return &participantRepository{store: s}
}

// Wishlists returns the wishlist repository
func (s *Store) Wishlists() draw.WishlistRepository {
	return &wishlistRepository{store: s}
}

type txRepositories struct {
	store *Store
	tx    *txState
}

func (r txRepositories) Participants() draw.ParticipantRepository {
	return &participantRepository{store: r.store, tx: r.tx}
}

func (r txRepositories) Wishlists() draw.WishlistRepository {
	return &wishlistRepository{store: r.store, tx: r.tx}
}

// Atomically runs fn with the store locked, rolling back on error
func (s *Store) Atomically(ctx context.Context, fn func(repos draw.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{}
	if err := fn(txRepositories{store: s, tx: tx}); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.log.Debug("Rolled back in-memory transaction", "writes", len(tx.undo), "error", err)
		return err
	}
	return nil
}

// Health always succeeds for the in-memory store
func (s *Store) Health(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func cloneParticipant(p *participant.Participant) *participant.Participant {
	c := *p
	if p.PickedTarget != nil {
		target := *p.PickedTarget
		c.PickedTarget = &target
	}
	if p.PickedAt != nil {
		at := *p.PickedAt
		c.PickedAt = &at
	}
	return &c
}

func cloneEntry(e *wishlist.Entry) *wishlist.Entry {
	c := *e
	if e.ClaimedBy != nil {
		by := *e.ClaimedBy
		c.ClaimedBy = &by
	}
	if e.ClaimedAt != nil {
		at := *e.ClaimedAt
		c.ClaimedAt = &at
	}
	return &c
}

var _ draw.Store = (*Store)(nil)
