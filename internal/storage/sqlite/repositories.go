package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
)

const participantColumns = `id, name, email, password_hash, has_picked, picked_target, picked_at, created_at, updated_at`

const entryColumns = `id, owner_id, content, claimed_by, claimed_at, created_at`

type participantRepository struct {
	q   querier
	log *log.Logger
}

func (r *participantRepository) Create(ctx context.Context, p *participant.Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("participant validation failed: %w", err)
	}

	email := participant.NormalizeEmail(p.Email)
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO participants (`+participantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(),
		p.Name,
		email,
		p.PasswordHash,
		p.HasPicked,
		nullableUUID(p.PickedTarget),
		nullableMillis(p.PickedAt),
		toMillis(p.CreatedAt),
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("participant with email %s: %w", email, draw.ErrDuplicateRecord)
		}
		r.log.Error("Failed to create participant", "email", email, "error", err)
		return fmt.Errorf("create participant: %w", err)
	}

	r.log.Debug("Participant created", "id", p.ID)
	return nil
}

func (r *participantRepository) GetByID(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id.String())
	p, err := scanParticipant(row)
	if err != nil {
		return nil, fmt.Errorf("get participant %s: %w", id, err)
	}
	return p, nil
}

func (r *participantRepository) GetByEmail(ctx context.Context, email string) (*participant.Participant, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE email = ?`, participant.NormalizeEmail(email))
	p, err := scanParticipant(row)
	if err != nil {
		return nil, fmt.Errorf("get participant by email: %w", err)
	}
	return p, nil
}

func (r *participantRepository) MarkPicked(ctx context.Context, participantID, targetID uuid.UUID, at time.Time) (bool, error) {
	if err := draw.ValidateAssignment(participantID, targetID); err != nil {
		return false, err
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE participants
		    SET has_picked = 1, picked_target = ?, picked_at = ?, updated_at = ?
		  WHERE id = ? AND has_picked = 0`,
		targetID.String(), toMillis(at), toMillis(time.Now()), participantID.String(),
	)
	if err != nil {
		if isForeignKeyViolation(err) || isCheckViolation(err) {
			return false, draw.ErrInvalidAssignment
		}
		return false, fmt.Errorf("mark participant picked: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark participant picked: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	exists, err := rowExists(ctx, r.q, `SELECT 1 FROM participants WHERE id = ?`, participantID.String())
	if err != nil {
		return false, fmt.Errorf("mark participant picked: %w", err)
	}
	if !exists {
		return false, draw.ErrRecordNotFound
	}
	r.log.Debug("Participant already picked", "id", participantID)
	return false, nil
}

func (r *participantRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.q, `SELECT COUNT(*) FROM participants`)
}

func (r *participantRepository) CountPicked(ctx context.Context) (int64, error) {
	return count(ctx, r.q, `SELECT COUNT(*) FROM participants WHERE has_picked = 1`)
}

type wishlistRepository struct {
	q   querier
	log *log.Logger
}

func (r *wishlistRepository) Create(ctx context.Context, entry *wishlist.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO wishlist_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.OwnerID.String(),
		entry.Content,
		nullableUUID(entry.ClaimedBy),
		nullableMillis(entry.ClaimedAt),
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("wishlist for owner %s: %w", entry.OwnerID, draw.ErrDuplicateRecord)
		case isForeignKeyViolation(err):
			return fmt.Errorf("wishlist owner %s: %w", entry.OwnerID, draw.ErrRecordNotFound)
		}
		r.log.Error("Failed to create wishlist entry", "owner_id", entry.OwnerID, "error", err)
		return fmt.Errorf("create wishlist entry: %w", err)
	}

	r.log.Debug("Wishlist entry created", "id", entry.ID, "owner_id", entry.OwnerID)
	return nil
}

func (r *wishlistRepository) ExistsForOwner(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	exists, err := rowExists(ctx, r.q, `SELECT 1 FROM wishlist_entries WHERE owner_id = ?`, ownerID.String())
	if err != nil {
		return false, fmt.Errorf("check wishlist for owner: %w", err)
	}
	return exists, nil
}

func (r *wishlistRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*wishlist.Entry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM wishlist_entries WHERE owner_id = ?`, ownerID.String())
	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get wishlist for owner %s: %w", ownerID, err)
	}
	return entry, nil
}

func (r *wishlistRepository) List(ctx context.Context) ([]*wishlist.Entry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM wishlist_entries ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list wishlist entries: %w", err)
	}
	defer rows.Close()

	var entries []*wishlist.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list wishlist entries: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list wishlist entries: %w", err)
	}
	return entries, nil
}

func (r *wishlistRepository) RandomEligible(ctx context.Context, filter draw.Eligibility) (*wishlist.Entry, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Exclude) > 0 {
		placeholders := make([]string, len(filter.Exclude))
		for i, id := range filter.Exclude {
			placeholders[i] = "?"
			args = append(args, id.String())
		}
		where = append(where, "owner_id NOT IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.UnclaimedOnly {
		where = append(where, "claimed_by IS NULL")
	}

	query := `SELECT ` + entryColumns + ` FROM wishlist_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	entry, err := scanEntry(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, draw.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("select eligible wishlist: %w", err)
	}
	return entry, nil
}

func (r *wishlistRepository) Claim(ctx context.Context, entryID, pickerID uuid.UUID) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE wishlist_entries
		    SET claimed_by = ?, claimed_at = ?
		  WHERE id = ? AND claimed_by IS NULL AND owner_id <> ?`,
		pickerID.String(), toMillis(time.Now()), entryID.String(), pickerID.String(),
	)
	if err != nil {
		if isForeignKeyViolation(err) || isCheckViolation(err) {
			return false, draw.ErrInvalidAssignment
		}
		return false, fmt.Errorf("claim wishlist entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim wishlist entry: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var ownerID string
	var claimedBy sql.NullString
	err = r.q.QueryRowContext(ctx,
		`SELECT owner_id, claimed_by FROM wishlist_entries WHERE id = ?`, entryID.String(),
	).Scan(&ownerID, &claimedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, draw.ErrRecordNotFound
	}
	if err != nil {
		return false, fmt.Errorf("claim wishlist entry: %w", err)
	}
	if !claimedBy.Valid && ownerID == pickerID.String() {
		return false, draw.ErrInvalidAssignment
	}
	return false, nil
}

func (r *wishlistRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.q, `SELECT COUNT(*) FROM wishlist_entries`)
}

func (r *wishlistRepository) CountClaimed(ctx context.Context) (int64, error) {
	return count(ctx, r.q, `SELECT COUNT(*) FROM wishlist_entries WHERE claimed_by IS NOT NULL`)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (*participant.Participant, error) {
	var (
		p            participant.Participant
		id           string
		pickedTarget sql.NullString
		pickedAt     sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(&id, &p.Name, &p.Email, &p.PasswordHash, &p.HasPicked,
		&pickedTarget, &pickedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, draw.ErrRecordNotFound
		}
		return nil, err
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse participant id: %w", err)
	}
	if p.PickedTarget, err = parseNullableUUID(pickedTarget); err != nil {
		return nil, fmt.Errorf("parse picked target: %w", err)
	}
	p.PickedAt = parseNullableMillis(pickedAt)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func scanEntry(row scanner) (*wishlist.Entry, error) {
	var (
		entry     wishlist.Entry
		id        string
		ownerID   string
		claimedBy sql.NullString
		claimedAt sql.NullInt64
		createdAt int64
	)
	err := row.Scan(&id, &ownerID, &entry.Content, &claimedBy, &claimedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, draw.ErrRecordNotFound
		}
		return nil, err
	}

	if entry.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse entry id: %w", err)
	}
	if entry.OwnerID, err = uuid.Parse(ownerID); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	if entry.ClaimedBy, err = parseNullableUUID(claimedBy); err != nil {
		return nil, fmt.Errorf("parse claimed by: %w", err)
	}
	entry.ClaimedAt = parseNullableMillis(claimedAt)
	entry.CreatedAt = fromMillis(createdAt)
	return &entry, nil
}

func count(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func parseNullableUUID(value sql.NullString) (*uuid.UUID, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseNullableMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}
