package participant

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesEmail(t *testing.T) {
	p := New("  Alice ", " Alice@Example.COM ", "hash")

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, StateNotPicked, p.State())
	assert.NoError(t, p.Validate())
}

func TestRecordPick(t *testing.T) {
	p := New("Alice", "alice@example.com", "hash")
	target := uuid.New()

	require.NoError(t, p.RecordPick(target, time.Now()))
	assert.Equal(t, StatePicked, p.State())
	require.NotNil(t, p.PickedTarget)
	assert.Equal(t, target, *p.PickedTarget)
	assert.NoError(t, p.Validate())

	err := p.RecordPick(uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrAlreadyPicked)
	assert.Equal(t, target, *p.PickedTarget, "a second pick must not reassign")
}

func TestRecordPickRejectsSelfAndNil(t *testing.T) {
	p := New("Alice", "alice@example.com", "hash")

	assert.ErrorIs(t, p.RecordPick(p.ID, time.Now()), ErrInvalidTarget)
	assert.ErrorIs(t, p.RecordPick(uuid.Nil, time.Now()), ErrInvalidTarget)
	assert.False(t, p.HasPicked)
	assert.Nil(t, p.PickedTarget)
}

func TestCanPick(t *testing.T) {
	p := New("Alice", "alice@example.com", "hash")

	assert.True(t, p.CanPick(uuid.New()))
	assert.False(t, p.CanPick(p.ID))
	assert.False(t, p.CanPick(uuid.Nil))

	require.NoError(t, p.RecordPick(uuid.New(), time.Now()))
	assert.False(t, p.CanPick(uuid.New()))
}

func TestValidateDetectsBrokenInvariants(t *testing.T) {
	p := New("Alice", "alice@example.com", "hash")
	p.HasPicked = true
	assert.ErrorIs(t, p.Validate(), ErrInconsistentPick)

	self := p.ID
	p.PickedTarget = &self
	assert.ErrorIs(t, p.Validate(), ErrInvalidTarget)

	p.HasPicked = false
	other := uuid.New()
	p.PickedTarget = &other
	assert.ErrorIs(t, p.Validate(), ErrInconsistentPick)
}
