package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type WishlistDatabase struct {
	q sqlx.ExtContext
}

func (wd *WishlistDatabase) Exists(ctx context.Context, userID, vinylID uuid.UUID) (bool, error) {
	const q = `
		select exists (
			select 1
			from wishlist
			where user_id = $1 and vinyl_id = $2
		) as exists
	`

	var exists bool
	if err := sqlx.GetContext(ctx, wd.q, &exists, q, userID, vinylID); err != nil {
		return false, fmt.Errorf("can't check wishlist: %w", err)
	}

	return exists, nil
}

func (wd *WishlistDatabase) Add(ctx context.Context, e model.WishlistEntry) error {
	const q = `insert into wishlist (user_id, vinyl_id, created_at) values ($1, $2, $3)`

	if _, err := wd.q.ExecContext(ctx, q, e.UserID, e.VinylID, e.CreatedAt); err != nil {
		return fmt.Errorf("can't add to wishlist: %w", mapError(err))
	}

	return nil
}

func (wd *WishlistDatabase) Remove(ctx context.Context, userID, vinylID uuid.UUID) error {
	const q = `delete from wishlist where user_id = $1 and vinyl_id = $2`

	res, err := wd.q.ExecContext(ctx, q, userID, vinylID)
	if err != nil {
		return fmt.Errorf("can't remove from wishlist: %w", err)
	}

	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("can't get affected rows: %w", err)
	} else if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (wd *WishlistDatabase) FindByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistEntry, error) {
	const q = `
		select user_id, vinyl_id, created_at
		from wishlist
		where user_id = $1
		order by created_at desc
	`

	var entries []model.WishlistEntry
	if err := sqlx.SelectContext(ctx, wd.q, &entries, q, userID); err != nil {
		return nil, fmt.Errorf("can't query wishlist: %w", err)
	}

	return entries, nil
}
