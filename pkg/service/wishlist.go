package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type Wishlist interface {
	// Toggle adds vinyl to caller's wishlist or removes it if already there. Returns whether it's wishlisted now.
	Toggle(ctx context.Context, p model.Principal, vinylID uuid.UUID) (bool, error)
	ListMine(ctx context.Context, p model.Principal) ([]model.WishlistEntry, error)
	IsWishlisted(ctx context.Context, p model.Principal, vinylID uuid.UUID) (bool, error)
}

type WishlistGeneric struct {
	Store database.Store
	Now   func() time.Time
}

func (wg *WishlistGeneric) Toggle(ctx context.Context, p model.Principal, vinylID uuid.UUID) (wishlisted bool, err error) {
	if !p.Authenticated() {
		return false, model.ErrUnauthenticated
	}

	err = wg.Store.RunInTx(ctx, func(ctx context.Context, r database.Repositories) error {
		if _, err := r.Vinyls().Get(ctx, vinylID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return model.ErrItemNotFound
			}
			return fmt.Errorf("can't get vinyl: %w", err)
		}

		exists, err := r.Wishlist().Exists(ctx, p.ID, vinylID)
		if err != nil {
			return err
		}

		if exists {
			wishlisted = false
			return r.Wishlist().Remove(ctx, p.ID, vinylID)
		}

		wishlisted = true
		return r.Wishlist().Add(ctx, model.WishlistEntry{
			UserID:    p.ID,
			VinylID:   vinylID,
			CreatedAt: wg.now(),
		})
	})
	// a concurrent toggle got there first, the entry ends up in the state this one wanted
	switch {
	case errors.Is(err, database.ErrConflict):
		return true, nil
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("can't toggle wishlist entry for vinyl %s: %w", vinylID, err)
	}

	return wishlisted, nil
}

func (wg *WishlistGeneric) ListMine(ctx context.Context, p model.Principal) ([]model.WishlistEntry, error) {
	if !p.Authenticated() {
		return nil, model.ErrUnauthenticated
	}

	entries, err := wg.Store.Wishlist().FindByUser(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("can't find wishlist: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.VinylID)
	}

	vinyls, err := wg.Store.Vinyls().Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("can't get vinyl summaries: %w", err)
	}

	for i := range entries {
		if v, ok := vinyls[entries[i].VinylID]; ok {
			entries[i].Vinyl = &v
		}
	}

	return entries, nil
}

// IsWishlisted is always false for anonymous callers.
func (wg *WishlistGeneric) IsWishlisted(ctx context.Context, p model.Principal, vinylID uuid.UUID) (bool, error) {
	if !p.Authenticated() {
		return false, nil
	}

	exists, err := wg.Store.Wishlist().Exists(ctx, p.ID, vinylID)
	if err != nil {
		return false, fmt.Errorf("can't check wishlist: %w", err)
	}

	return exists, nil
}

func (wg *WishlistGeneric) now() time.Time {
	if wg.Now != nil {
		return wg.Now()
	}
	return time.Now().UTC()
}
