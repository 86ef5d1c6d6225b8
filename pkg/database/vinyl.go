package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type VinylDatabase struct {
	q sqlx.ExtContext
}

const vinylColumns = `id, title, artist, year, genre, price, stock, description, cover_url, audio_url, created_at`

func (vd *VinylDatabase) Get(ctx context.Context, id uuid.UUID) (model.Vinyl, error) {
	var v model.Vinyl

	q := `select ` + vinylColumns + ` from vinyls where id = $1`
	if err := sqlx.GetContext(ctx, vd.q, &v, q, id); err != nil {
		return model.Vinyl{}, fmt.Errorf("can't get vinyl %s: %w", id, mapError(err))
	}

	return v, nil
}

func (vd *VinylDatabase) Create(ctx context.Context, v model.Vinyl) error {
	q := `
		insert into vinyls (` + vinylColumns + `)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := vd.q.ExecContext(ctx, q,
		v.ID, v.Title, v.Artist, v.Year, v.Genre, v.Price, v.Stock, v.Description, v.CoverURL, v.AudioURL, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("can't insert vinyl: %w", mapError(err))
	}

	return nil
}

func (vd *VinylDatabase) GetPage(ctx context.Context, onlyAvailable bool, num, size int) ([]model.Vinyl, int, error) {
	where := ""
	if onlyAvailable {
		where = "where stock > 0"
	}

	var total int
	if err := sqlx.GetContext(ctx, vd.q, &total, `select count(*) from vinyls `+where); err != nil {
		return nil, 0, fmt.Errorf("can't count vinyls: %w", err)
	}

	offset := (num - 1) * size
	q := `
		select ` + vinylColumns + `
		from vinyls
		` + where + `
		order by created_at desc, id
		limit $1 offset $2
	`

	vinyls := make([]model.Vinyl, 0, size)
	if err := sqlx.SelectContext(ctx, vd.q, &vinyls, q, size, offset); err != nil {
		return nil, 0, fmt.Errorf("can't query vinyls: %w", err)
	}

	return vinyls, total, nil
}

func (vd *VinylDatabase) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.VinylSummary, error) {
	res := make(map[uuid.UUID]model.VinylSummary, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	q, args, err := sqlx.In(`select id, title, artist, price, stock, cover_url from vinyls where id in (?)`, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("can't build summaries query: %w", err)
	}

	var summaries []model.VinylSummary
	if err := sqlx.SelectContext(ctx, vd.q, &summaries, vd.q.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("can't query vinyl summaries: %w", err)
	}

	for _, s := range summaries {
		res[s.ID] = s
	}

	return res, nil
}

func (vd *VinylDatabase) Update(ctx context.Context, v model.Vinyl) error {
	const q = `
		update vinyls
		set title = $2, artist = $3, year = $4, genre = $5, price = $6, description = $7, cover_url = $8, audio_url = $9
		where id = $1
	`

	res, err := vd.q.ExecContext(ctx, q, v.ID, v.Title, v.Artist, v.Year, v.Genre, v.Price, v.Description, v.CoverURL, v.AudioURL)
	if err != nil {
		return fmt.Errorf("can't update vinyl %s: %w", v.ID, mapError(err))
	}

	return requireAffected(res, v.ID)
}

// Delete cascades to wishlist. A reservation referencing the vinyl makes it fail with ErrConflict.
func (vd *VinylDatabase) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := vd.q.ExecContext(ctx, `delete from vinyls where id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete vinyl %s: %w", id, mapError(err))
	}

	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't get affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("vinyl %s: %w", id, ErrNotFound)
	}

	return nil
}

// DecrementStock relies on the row lock taken by UPDATE: concurrent decrements of the same vinyl
// are serialized and each one re-checks "stock > 0" against the committed value.
func (vd *VinylDatabase) DecrementStock(ctx context.Context, id uuid.UUID) (int, error) {
	const q = `
		update vinyls
		set stock = stock - 1
		where id = $1 and stock > 0
		returning stock
	`

	var stock int
	err := sqlx.GetContext(ctx, vd.q, &stock, q, id)
	if err == nil {
		return stock, nil
	}

	if err = mapError(err); !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("can't decrement stock: %w", err)
	}

	// nothing updated: either vinyl is gone or stock is exhausted
	var exists bool
	if err := sqlx.GetContext(ctx, vd.q, &exists, `select exists (select 1 from vinyls where id = $1)`, id); err != nil {
		return 0, fmt.Errorf("can't check if vinyl exists: %w", err)
	}

	if !exists {
		return 0, fmt.Errorf("can't decrement stock of vinyl %s: %w", id, ErrNotFound)
	}

	return 0, model.ErrInsufficientStock
}

func (vd *VinylDatabase) IncrementStock(ctx context.Context, id uuid.UUID) (int, error) {
	const q = `
		update vinyls
		set stock = stock + 1
		where id = $1
		returning stock
	`

	var stock int
	if err := sqlx.GetContext(ctx, vd.q, &stock, q, id); err != nil {
		return 0, fmt.Errorf("can't increment stock of vinyl %s: %w", id, mapError(err))
	}

	return stock, nil
}

func idStrings(ids []uuid.UUID) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		res = append(res, id.String())
	}
	return res
}
