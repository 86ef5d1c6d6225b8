package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

const vinylsKeyPrefix = "vinyls:"

// CatalogCaching is a caching layer which is intended to be called before CatalogGeneric.
// It may be helpful if a single vinyl page is opened many times. Stock of a cached vinyl may be stale for up to TTL.
type CatalogCaching struct {
	Catalog

	Redis *redis.Client
	TTL   time.Duration
}

// Get returns vinyl from cache if present. Otherwise it goes to Catalog.Get and caches the result.
// Errors occurring when calling redis are not returned.
func (cc *CatalogCaching) Get(ctx context.Context, id uuid.UUID) (model.Vinyl, error) {
	key := vinylCacheKey(id)

	val, err := cc.Redis.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// do nothing
	case err != nil:
		slog.Error("can't get vinyl from redis", slog.Any("error", err))

	default:
		var v model.Vinyl
		if err := json.Unmarshal(val, &v); err != nil {
			slog.Error("can't parse vinyl cache value", slog.String("val", string(val)), slog.Any("error", err))
			break
		}

		return v, nil
	}

	// slower path
	v, err := cc.Catalog.Get(ctx, id)
	if err != nil {
		return model.Vinyl{}, err
	}

	val, err = json.Marshal(v)
	if err != nil {
		slog.Error("can't marshal vinyl", slog.Any("error", err))
		return v, nil
	}

	if err := cc.Redis.Set(ctx, key, val, cc.TTL).Err(); err != nil {
		slog.Error("can't set vinyl in redis", slog.Any("error", err))
	}

	return v, nil
}

// Update drops the cached vinyl once the change is stored.
func (cc *CatalogCaching) Update(ctx context.Context, p model.Principal, id uuid.UUID, patch model.VinylPatch) (model.Vinyl, error) {
	v, err := cc.Catalog.Update(ctx, p, id, patch)
	if err != nil {
		return model.Vinyl{}, err
	}

	cc.evict(ctx, id)
	return v, nil
}

func (cc *CatalogCaching) Delete(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := cc.Catalog.Delete(ctx, p, id); err != nil {
		return err
	}

	cc.evict(ctx, id)
	return nil
}

func (cc *CatalogCaching) evict(ctx context.Context, id uuid.UUID) {
	if err := cc.Redis.Del(ctx, vinylCacheKey(id)).Err(); err != nil {
		slog.Error("can't evict vinyl from redis", slog.String("vinyl_id", id.String()), slog.Any("error", err))
	}
}

func vinylCacheKey(id uuid.UUID) string {
	return vinylsKeyPrefix + id.String()
}
