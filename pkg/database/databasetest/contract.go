// Package databasetest holds behavior every database.Store backend must share.
package databasetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

// Run checks store against the repository contracts. The store must be empty or
// at least contain nothing created by other runs with the same ids.
func Run(t *testing.T, store database.Store) {
	t.Run("vinyls", func(t *testing.T) { testVinyls(t, store) })
	t.Run("vinyl update", func(t *testing.T) { testVinylUpdate(t, store) })
	t.Run("vinyl delete", func(t *testing.T) { testVinylDelete(t, store) })
	t.Run("stock floor", func(t *testing.T) { testStockFloor(t, store) })
	t.Run("concurrent decrements", func(t *testing.T) { testConcurrentDecrements(t, store) })
	t.Run("tx rollback", func(t *testing.T) { testRollback(t, store) })
	t.Run("reservations", func(t *testing.T) { testReservations(t, store) })
	t.Run("wishlist", func(t *testing.T) { testWishlist(t, store) })
	t.Run("keep attempts", func(t *testing.T) { testKeepAttempts(t, store) })
}

func newVinyl(t *testing.T, store database.Store, stock int) model.Vinyl {
	t.Helper()

	v := model.Vinyl{
		Base:   model.Base{ID: uuid.New(), CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
		Title:  "Kind of Blue",
		Artist: "Miles Davis",
		Year:   1959,
		Price:  2999,
		Stock:  stock,
	}
	require.NoError(t, store.Vinyls().Create(context.Background(), v))

	return v
}

func stock(t *testing.T, store database.Store, id uuid.UUID) int {
	t.Helper()

	v, err := store.Vinyls().Get(context.Background(), id)
	require.NoError(t, err)

	return v.Stock
}

func testVinyls(t *testing.T, store database.Store) {
	ctx := context.Background()
	v := newVinyl(t, store, 2)

	got, err := store.Vinyls().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, v.Title, got.Title)
	assert.Equal(t, v.Stock, got.Stock)
	assert.True(t, v.CreatedAt.Equal(got.CreatedAt))

	_, err = store.Vinyls().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, database.ErrNotFound)

	sums, err := store.Vinyls().Summaries(ctx, []uuid.UUID{v.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "Kind of Blue", sums[v.ID].Title)

	sums, err = store.Vinyls().Summaries(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, sums)

	page, total, err := store.Vinyls().GetPage(ctx, false, 1, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.Len(t, page, 1)
}

func testVinylUpdate(t *testing.T, store database.Store) {
	ctx := context.Background()
	v := newVinyl(t, store, 3)

	changed := v
	changed.Title = "Blue Train"
	changed.Price = 1999
	changed.Stock = 100
	require.NoError(t, store.Vinyls().Update(ctx, changed))

	got, err := store.Vinyls().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Train", got.Title)
	assert.Equal(t, int64(1999), got.Price)
	assert.Equal(t, 3, got.Stock, "stock is not written by update")

	changed.ID = uuid.New()
	assert.ErrorIs(t, store.Vinyls().Update(ctx, changed), database.ErrNotFound)
}

func testVinylDelete(t *testing.T, store database.Store) {
	ctx := context.Background()
	free := newVinyl(t, store, 1)
	reserved := newVinyl(t, store, 1)
	user := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.Wishlist().Add(ctx, model.WishlistEntry{UserID: user, VinylID: free.ID, CreatedAt: now}))
	require.NoError(t, store.Reservations().Insert(ctx, model.Reservation{
		ID: uuid.New(), OwnerID: user, VinylID: reserved.ID,
		ReservedAt: now, ExpiresAt: now.Add(time.Hour), Status: model.StatusCollected,
	}))

	exists, err := store.Reservations().ExistsForVinyl(ctx, reserved.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Reservations().ExistsForVinyl(ctx, free.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Vinyls().Delete(ctx, free.ID))

	_, err = store.Vinyls().Get(ctx, free.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	wished, err := store.Wishlist().Exists(ctx, user, free.ID)
	require.NoError(t, err)
	assert.False(t, wished, "wishlist entries go with the vinyl")

	assert.ErrorIs(t, store.Vinyls().Delete(ctx, free.ID), database.ErrNotFound)
	assert.ErrorIs(t, store.Vinyls().Delete(ctx, reserved.ID), database.ErrConflict)
	assert.Equal(t, 1, stock(t, store, reserved.ID))
}

func testStockFloor(t *testing.T, store database.Store) {
	ctx := context.Background()
	v := newVinyl(t, store, 1)

	left, err := store.Vinyls().DecrementStock(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	_, err = store.Vinyls().DecrementStock(ctx, v.ID)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	_, err = store.Vinyls().DecrementStock(ctx, uuid.New())
	assert.ErrorIs(t, err, database.ErrNotFound)

	left, err = store.Vinyls().IncrementStock(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func testConcurrentDecrements(t *testing.T, store database.Store) {
	const (
		initial = 3
		callers = 8
	)

	v := newVinyl(t, store, initial)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := store.RunInTx(context.Background(), func(ctx context.Context, r database.Repositories) error {
				_, err := r.Vinyls().DecrementStock(ctx, v.ID)
				return err
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}

			assert.ErrorIs(t, err, model.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, initial, ok)
	assert.Equal(t, 0, stock(t, store, v.ID))
}

func testRollback(t *testing.T, store database.Store) {
	v := newVinyl(t, store, 2)
	boom := errors.New("boom")
	resID := uuid.New()

	err := store.RunInTx(context.Background(), func(ctx context.Context, r database.Repositories) error {
		if _, err := r.Vinyls().DecrementStock(ctx, v.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := r.Reservations().Insert(ctx, model.Reservation{
			ID: resID, OwnerID: uuid.New(), VinylID: v.ID, ReservedAt: now, ExpiresAt: now.Add(time.Hour), Status: model.StatusActive,
		}); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 2, stock(t, store, v.ID))

	_, err = store.Reservations().FindByID(context.Background(), resID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testReservations(t *testing.T, store database.Store) {
	ctx := context.Background()
	v := newVinyl(t, store, 5)
	owner := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	older := model.Reservation{
		ID: uuid.New(), OwnerID: owner, VinylID: v.ID,
		ReservedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour), Status: model.StatusActive,
	}
	newer := model.Reservation{
		ID: uuid.New(), OwnerID: owner, VinylID: v.ID,
		ReservedAt: now, ExpiresAt: now.Add(24 * time.Hour), Status: model.StatusActive,
	}

	require.NoError(t, store.Reservations().Insert(ctx, older))
	require.NoError(t, store.Reservations().Insert(ctx, newer))

	got, err := store.Reservations().FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.True(t, older.ExpiresAt.Equal(got.ExpiresAt))

	mine, err := store.Reservations().FindByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	overdue, err := store.Reservations().FindOverdue(ctx, now)
	require.NoError(t, err)
	assert.True(t, containsReservation(overdue, older.ID))
	assert.False(t, containsReservation(overdue, newer.ID))

	all, err := store.Reservations().FindAll(ctx)
	require.NoError(t, err)
	assert.True(t, containsReservation(all, older.ID))
	assert.True(t, containsReservation(all, newer.ID))

	require.NoError(t, store.Reservations().UpdateStatus(ctx, older.ID, model.StatusActive, model.StatusExpired))

	err = store.Reservations().UpdateStatus(ctx, older.ID, model.StatusActive, model.StatusCollected)
	assert.ErrorIs(t, err, database.ErrConflict)

	err = store.Reservations().UpdateStatus(ctx, uuid.New(), model.StatusActive, model.StatusExpired)
	assert.ErrorIs(t, err, database.ErrNotFound)

	overdue, err = store.Reservations().FindOverdue(ctx, now)
	require.NoError(t, err)
	assert.False(t, containsReservation(overdue, older.ID), "only active reservations are overdue")
}

func containsReservation(rs []model.Reservation, id uuid.UUID) bool {
	for _, r := range rs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func testWishlist(t *testing.T, store database.Store) {
	ctx := context.Background()
	v := newVinyl(t, store, 1)
	user := uuid.New()

	exists, err := store.Wishlist().Exists(ctx, user, v.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Wishlist().Add(ctx, model.WishlistEntry{UserID: user, VinylID: v.ID, CreatedAt: time.Now().UTC()}))

	err = store.Wishlist().Add(ctx, model.WishlistEntry{UserID: user, VinylID: v.ID, CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, database.ErrConflict)

	exists, err = store.Wishlist().Exists(ctx, user, v.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := store.Wishlist().FindByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, v.ID, entries[0].VinylID)

	require.NoError(t, store.Wishlist().Remove(ctx, user, v.ID))
	assert.ErrorIs(t, store.Wishlist().Remove(ctx, user, v.ID), database.ErrNotFound)
}

func testKeepAttempts(t *testing.T, store database.Store) {
	v := newVinyl(t, store, 1)

	err := store.KeepAttempts().Add(context.Background(),
		model.KeepAttempt{UserID: uuid.New(), VinylID: v.ID, CreatedAt: time.Now().UTC(), ReservationID: uuid.New()},
		model.KeepAttempt{UserID: uuid.New(), VinylID: v.ID, CreatedAt: time.Now().UTC(), Error: "vinyl is not available"},
	)
	assert.NoError(t, err)
}
