//go:build integration
// +build integration

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/domain/wishlist"
	"github.com/gravadigital/wishdraw-api/internal/storage/postgres"
)

// Integration tests that require a real PostgreSQL database
// Run with: go test -tags=integration ./cmd/api/

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	if testDB := os.Getenv("TEST_DB_NAME"); testDB != "" {
		cfg.DB.Name = testDB
	}
	return cfg
}

func TestDatabaseConnection(t *testing.T) {
	db, err := postgres.Connect(testConfig(t))
	require.NoError(t, err, "Should be able to connect to test database")
	defer postgres.Close(db)

	assert.NoError(t, postgres.HealthCheck(context.Background(), db))
}

func TestDatabaseMigration(t *testing.T) {
	db, err := postgres.Connect(testConfig(t))
	require.NoError(t, err, "Should be able to connect to test database")
	defer postgres.Close(db)

	assert.NoError(t, postgres.AutoMigrate(db), "Should be able to run migrations")
	// second run is a no-op
	assert.NoError(t, postgres.AutoMigrate(db))
}

func newCleanContainer(t *testing.T) *postgres.Container {
	t.Helper()
	container, err := postgres.NewContainer(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	require.NoError(t, container.GetDB().Exec("TRUNCATE wishlist_entries, participants CASCADE").Error)
	return container
}

func TestPostgresConcurrentDraw(t *testing.T) {
	container := newCleanContainer(t)
	ctx := context.Background()

	const n = 12
	ids := make([]uuid.UUID, n)
	for i := range n {
		p := participant.New(fmt.Sprintf("P%d", i), fmt.Sprintf("p%d@example.com", i), "hash")
		require.NoError(t, container.Participants().Create(ctx, p))
		require.NoError(t, container.Wishlists().Create(ctx, wishlist.NewEntry(p.ID, fmt.Sprintf("list %d", i))))
		ids[i] = p.ID
	}

	svc := draw.NewService(container, draw.ModeClosed, draw.WithMaxClaimAttempts(n))

	const callers = 2
	type result struct {
		pick *draw.Pick
		err  error
	}
	results := make([][callers]result, n)

	var wg sync.WaitGroup
	for i, id := range ids {
		for j := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pick, err := svc.PickTarget(ctx, id)
				results[i][j] = result{pick: pick, err: err}
			}()
		}
	}
	wg.Wait()

	owners := map[uuid.UUID]int{}
	for i, calls := range results {
		var winner *draw.Pick
		for _, r := range calls {
			if r.err == nil {
				require.Nil(t, winner, "participant %s assigned twice", ids[i])
				winner = r.pick
			}
		}
		if winner == nil {
			// late pickers may find only their own entry left
			for _, r := range calls {
				var already *draw.AlreadyPickedError
				require.False(t, errors.As(r.err, &already), "already picked without a winner: %v", r.err)
				require.ErrorIs(t, r.err, draw.ErrNoEligibleTargets)
			}
			continue
		}

		assert.NotEqual(t, ids[i], winner.OwnerID)
		owners[winner.OwnerID]++

		for _, r := range calls {
			if r.err == nil {
				continue
			}
			var already *draw.AlreadyPickedError
			if !errors.As(r.err, &already) {
				// lost its claim to the winner and found nothing else unclaimed
				require.ErrorIs(t, r.err, draw.ErrNoEligibleTargets)
				continue
			}
			assert.Equal(t, winner.OwnerID, already.Target.OwnerID)
		}
	}

	for owner, count := range owners {
		assert.Equal(t, 1, count, "wishlist of %s drawn more than once", owner)
	}

	picked, err := container.Participants().CountPicked(ctx)
	require.NoError(t, err)
	claimed, err := container.Wishlists().CountClaimed(ctx)
	require.NoError(t, err)
	assert.Equal(t, picked, claimed)
	assert.Equal(t, int64(len(owners)), claimed)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, draw.Progress{
		Participants:      n,
		ParticipantsDrawn: picked,
		Wishlists:         n,
		WishlistsClaimed:  claimed,
	}, stats.Progress)
}

func TestPostgresPickResetIsRejected(t *testing.T) {
	container := newCleanContainer(t)
	ctx := context.Background()

	a := participant.New("A", "a@example.com", "hash")
	b := participant.New("B", "b@example.com", "hash")
	require.NoError(t, container.Participants().Create(ctx, a))
	require.NoError(t, container.Participants().Create(ctx, b))

	ok, err := container.Participants().MarkPicked(ctx, a.ID, b.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	err = container.GetDB().Exec("UPDATE participants SET has_picked = false, picked_target = NULL WHERE id = ?", a.ID).Error
	assert.Error(t, err)
}
