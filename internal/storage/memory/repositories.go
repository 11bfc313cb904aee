package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
)

type participantRepository struct {
	store *Store
	tx    *txState
}

func (r *participantRepository) Create(ctx context.Context, p *participant.Participant) error {
	return r.store.with(ctx, r.tx, func(d *dataset) error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("participant validation failed: %w", err)
		}
		email := participant.NormalizeEmail(p.Email)
		if _, exists := d.byEmail[email]; exists {
			return fmt.Errorf("participant with email %s: %w", email, draw.ErrDuplicateRecord)
		}
		if _, exists := d.participants[p.ID]; exists {
			return fmt.Errorf("participant %s: %w", p.ID, draw.ErrDuplicateRecord)
		}

		stored := cloneParticipant(p)
		stored.Email = email
		now := time.Now().UTC()
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now

		d.participants[stored.ID] = stored
		d.byEmail[email] = stored.ID
		r.tx.onRollback(func() {
			delete(d.participants, stored.ID)
			delete(d.byEmail, email)
		})
		return nil
	})
}

func (r *participantRepository) GetByID(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	var found *participant.Participant
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		p, ok := d.participants[id]
		if !ok {
			return draw.ErrRecordNotFound
		}
		found = cloneParticipant(p)
		return nil
	})
	return found, err
}

func (r *participantRepository) GetByEmail(ctx context.Context, email string) (*participant.Participant, error) {
	var found *participant.Participant
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		id, ok := d.byEmail[participant.NormalizeEmail(email)]
		if !ok {
			return draw.ErrRecordNotFound
		}
		found = cloneParticipant(d.participants[id])
		return nil
	})
	return found, err
}

func (r *participantRepository) MarkPicked(ctx context.Context, participantID, targetID uuid.UUID, at time.Time) (bool, error) {
	if err := draw.ValidateAssignment(participantID, targetID); err != nil {
		return false, err
	}

	var marked bool
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		p, ok := d.participants[participantID]
		if !ok {
			return draw.ErrRecordNotFound
		}
		if _, ok := d.participants[targetID]; !ok {
			return draw.ErrInvalidAssignment
		}
		if p.HasPicked {
			return nil
		}

		previous := cloneParticipant(p)
		if err := p.RecordPick(targetID, at.UTC()); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		marked = true
		r.tx.onRollback(func() { d.participants[participantID] = previous })
		return nil
	})
	return marked, err
}

func (r *participantRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		n = int64(len(d.participants))
		return nil
	})
	return n, err
}

func (r *participantRepository) CountPicked(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		for _, p := range d.participants {
			if p.HasPicked {
				n++
			}
		}
		return nil
	})
	return n, err
}

type wishlistRepository struct {
	store *Store
	tx    *txState
}

func (r *wishlistRepository) Create(ctx context.Context, entry *wishlist.Entry) error {
	return r.store.with(ctx, r.tx, func(d *dataset) error {
		if _, ok := d.participants[entry.OwnerID]; !ok {
			return fmt.Errorf("wishlist owner %s: %w", entry.OwnerID, draw.ErrRecordNotFound)
		}
		if _, exists := d.byOwner[entry.OwnerID]; exists {
			return fmt.Errorf("wishlist for owner %s: %w", entry.OwnerID, draw.ErrDuplicateRecord)
		}
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}

		stored := cloneEntry(entry)
		d.entries[stored.ID] = stored
		d.byOwner[stored.OwnerID] = stored.ID
		d.entryOrder = append(d.entryOrder, stored.ID)
		r.tx.onRollback(func() {
			delete(d.entries, stored.ID)
			delete(d.byOwner, stored.OwnerID)
			d.entryOrder = d.entryOrder[:len(d.entryOrder)-1]
		})
		return nil
	})
}

func (r *wishlistRepository) ExistsForOwner(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		_, exists = d.byOwner[ownerID]
		return nil
	})
	return exists, err
}

func (r *wishlistRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*wishlist.Entry, error) {
	var found *wishlist.Entry
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		id, ok := d.byOwner[ownerID]
		if !ok {
			return draw.ErrRecordNotFound
		}
		found = cloneEntry(d.entries[id])
		return nil
	})
	return found, err
}

func (r *wishlistRepository) List(ctx context.Context) ([]*wishlist.Entry, error) {
	var entries []*wishlist.Entry
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		entries = make([]*wishlist.Entry, 0, len(d.entryOrder))
		for _, id := range d.entryOrder {
			entries = append(entries, cloneEntry(d.entries[id]))
		}
		return nil
	})
	return entries, err
}

func (r *wishlistRepository) RandomEligible(ctx context.Context, filter draw.Eligibility) (*wishlist.Entry, error) {
	var chosen *wishlist.Entry
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		candidates := make([]*wishlist.Entry, 0, len(d.entryOrder))
		for _, id := range d.entryOrder {
			entry := d.entries[id]
			if filter.Excludes(entry.OwnerID) {
				continue
			}
			if filter.UnclaimedOnly && entry.IsClaimed() {
				continue
			}
			candidates = append(candidates, entry)
		}
		if len(candidates) == 0 {
			return draw.ErrRecordNotFound
		}
		chosen = cloneEntry(candidates[r.store.rng.IntN(len(candidates))])
		return nil
	})
	return chosen, err
}

func (r *wishlistRepository) Claim(ctx context.Context, entryID, pickerID uuid.UUID) (bool, error) {
	var claimed bool
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		entry, ok := d.entries[entryID]
		if !ok {
			return draw.ErrRecordNotFound
		}
		if entry.IsClaimed() {
			return nil
		}
		if entry.OwnerID == pickerID {
			return draw.ErrInvalidAssignment
		}

		now := time.Now().UTC()
		by := pickerID
		entry.ClaimedBy = &by
		entry.ClaimedAt = &now
		claimed = true
		r.tx.onRollback(func() {
			entry.ClaimedBy = nil
			entry.ClaimedAt = nil
		})
		return nil
	})
	return claimed, err
}

func (r *wishlistRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		n = int64(len(d.entries))
		return nil
	})
	return n, err
}

func (r *wishlistRepository) CountClaimed(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.with(ctx, r.tx, func(d *dataset) error {
		for _, entry := range d.entries {
			if entry.IsClaimed() {
				n++
			}
		}
		return nil
	})
	return n, err
}
