package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	svc := &CatalogGeneric{Store: f.store, Now: func() time.Time { return f.now }}

	out := f.vinyl("Sold Out", 0)
	f.advance(time.Second)
	in := f.vinyl("In Stock", 3)

	t.Run("list available", func(t *testing.T) {
		page, total, err := svc.ListPage(ctx, true, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, page, 1)
		assert.Equal(t, in.ID, page[0].ID)
	})

	t.Run("list all newest first", func(t *testing.T) {
		page, total, err := svc.ListPage(ctx, false, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 2)
		assert.Equal(t, in.ID, page[0].ID)
		assert.Equal(t, out.ID, page[1].ID)
	})

	t.Run("bad paging", func(t *testing.T) {
		_, _, err := svc.ListPage(ctx, false, 0, 10)
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		_, _, err = svc.ListPage(ctx, false, 1, MaxPageSize+1)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("get", func(t *testing.T) {
		v, err := svc.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, "In Stock", v.Title)

		_, err = svc.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrItemNotFound)
	})

	t.Run("create", func(t *testing.T) {
		draft := model.Vinyl{Title: "Blue Train", Artist: "John Coltrane", Price: 3500, Stock: 2}

		_, err := svc.Create(ctx, userA, draft)
		assert.ErrorIs(t, err, model.ErrForbidden)

		_, err = svc.Create(ctx, model.Principal{}, draft)
		assert.ErrorIs(t, err, model.ErrUnauthenticated)

		_, err = svc.Create(ctx, admin, model.Vinyl{Title: "No Artist"})
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		_, err = svc.Create(ctx, admin, model.Vinyl{Title: "Negative", Artist: "X", Stock: -1})
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		created, err := svc.Create(ctx, admin, draft)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, f.now, created.CreatedAt)
		assert.Equal(t, 2, f.store.Stock(created.ID))
	})
}

func TestCatalogCaching(t *testing.T) {
	f := newFixture(t)
	v := f.vinyl("Kind of Blue", 3)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := &CatalogCaching{
		Catalog: &CatalogGeneric{Store: f.store},
		Redis:   rdb,
		TTL:     time.Minute,
	}

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	raw, err := mr.Get(vinylCacheKey(v.ID))
	require.NoError(t, err)

	var cached model.Vinyl
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, v.ID, cached.ID)
	assert.Equal(t, time.Minute, mr.TTL(vinylCacheKey(v.ID)))

	_, err = f.store.Vinyls().DecrementStock(ctx, v.ID)
	require.NoError(t, err)

	got, err = svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock, "served from cache until TTL passes")

	mr.FastForward(time.Minute)

	got, err = svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrItemNotFound)
}

func TestCatalogCachingRedisDown(t *testing.T) {
	f := newFixture(t)
	v := f.vinyl("Kind of Blue", 3)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	svc := &CatalogCaching{Catalog: &CatalogGeneric{Store: f.store}, Redis: rdb, TTL: time.Minute}

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}

func ptr[T any](v T) *T { return &v }

func TestCatalogUpdate(t *testing.T) {
	f := newFixture(t)
	svc := &CatalogGeneric{Store: f.store}
	v := f.vinyl("Kind of Blue", 3)

	patch := model.VinylPatch{Title: ptr("Kind of Blue (Remastered)"), Price: ptr(int64(3999))}

	_, err := svc.Update(ctx, userA, v.ID, patch)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = svc.Update(ctx, model.Principal{}, v.ID, patch)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = svc.Update(ctx, admin, uuid.New(), patch)
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	_, err = svc.Update(ctx, admin, v.ID, model.VinylPatch{Artist: ptr("")})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	updated, err := svc.Update(ctx, admin, v.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Kind of Blue (Remastered)", updated.Title)
	assert.Equal(t, "Miles Davis", updated.Artist)
	assert.Equal(t, int64(3999), updated.Price)

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Title, got.Title)
	assert.Equal(t, 3, got.Stock)
}

func TestCatalogDelete(t *testing.T) {
	f := newFixture(t)
	svc := &CatalogGeneric{Store: f.store}
	wishlist := &WishlistGeneric{Store: f.store}

	free := f.vinyl("Blue Train", 2)
	kept := f.vinyl("Kind of Blue", 2)

	_, err := wishlist.Toggle(ctx, userA, free.ID)
	require.NoError(t, err)

	res, err := f.svc.Keep(ctx, userA, kept.ID, "Kind of Blue")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, userA, free.ID), model.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, admin, uuid.New()), model.ErrItemNotFound)

	require.NoError(t, svc.Delete(ctx, admin, free.ID))
	assert.Equal(t, -1, f.store.Stock(free.ID))

	entries, err := wishlist.ListMine(ctx, userA)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, svc.Delete(ctx, admin, kept.ID), model.ErrVinylReserved)

	_, err = f.svc.Transition(ctx, admin, res.ID, string(model.StatusCollected))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, admin, kept.ID), model.ErrVinylReserved, "history keeps the vinyl too")
}

func TestCatalogCachingEvicts(t *testing.T) {
	f := newFixture(t)
	v := f.vinyl("Kind of Blue", 3)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := &CatalogCaching{Catalog: &CatalogGeneric{Store: f.store}, Redis: rdb, TTL: time.Minute}

	_, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(vinylCacheKey(v.ID)))

	_, err = svc.Update(ctx, admin, v.ID, model.VinylPatch{Title: ptr("Blue Train")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(vinylCacheKey(v.ID)))

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Train", got.Title)

	require.NoError(t, svc.Delete(ctx, admin, v.ID))
	assert.False(t, mr.Exists(vinylCacheKey(v.ID)))

	_, err = svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, model.ErrItemNotFound)
}
