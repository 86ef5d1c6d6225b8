package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type ReservationDatabase struct {
	q sqlx.ExtContext
}

const reservationColumns = `id, owner_id, vinyl_id, reserved_at, expires_at, status`

func (rd *ReservationDatabase) Insert(ctx context.Context, r model.Reservation) error {
	q := `insert into reservations (` + reservationColumns + `) values ($1, $2, $3, $4, $5, $6)`

	if _, err := rd.q.ExecContext(ctx, q, r.ID, r.OwnerID, r.VinylID, r.ReservedAt, r.ExpiresAt, r.Status); err != nil {
		return fmt.Errorf("can't insert reservation: %w", mapError(err))
	}

	return nil
}

func (rd *ReservationDatabase) FindByID(ctx context.Context, id uuid.UUID) (model.Reservation, error) {
	var r model.Reservation

	q := `select ` + reservationColumns + ` from reservations where id = $1`
	if err := sqlx.GetContext(ctx, rd.q, &r, q, id); err != nil {
		return model.Reservation{}, fmt.Errorf("can't get reservation %s: %w", id, mapError(err))
	}

	return r, nil
}

func (rd *ReservationDatabase) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Reservation, error) {
	q := `
		select ` + reservationColumns + `
		from reservations
		where owner_id = $1
		order by reserved_at desc, id
	`
	return rd.selectReservations(ctx, q, ownerID)
}

func (rd *ReservationDatabase) FindAll(ctx context.Context) ([]model.Reservation, error) {
	q := `
		select ` + reservationColumns + `
		from reservations
		order by reserved_at desc, id
	`
	return rd.selectReservations(ctx, q)
}

func (rd *ReservationDatabase) FindOverdue(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	q := `
		select ` + reservationColumns + `
		from reservations
		where status = $1 and expires_at < $2
		order by expires_at
	`
	return rd.selectReservations(ctx, q, model.StatusActive, now)
}

func (rd *ReservationDatabase) ExistsForVinyl(ctx context.Context, vinylID uuid.UUID) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, rd.q, &exists, `select exists (select 1 from reservations where vinyl_id = $1)`, vinylID); err != nil {
		return false, fmt.Errorf("can't check reservations of vinyl %s: %w", vinylID, err)
	}

	return exists, nil
}

func (rd *ReservationDatabase) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) error {
	const q = `
		update reservations
		set status = $1
		where id = $2 and status = $3
	`

	res, err := rd.q.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return fmt.Errorf("can't update reservation status: %w", mapError(err))
	}

	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("can't get affected rows: %w", err)
	} else if affected != 1 {
		return fmt.Errorf("reservation %s is not %s anymore: %w", id, from, ErrConflict)
	}

	return nil
}

func (rd *ReservationDatabase) selectReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	var rs []model.Reservation
	if err := sqlx.SelectContext(ctx, rd.q, &rs, q, args...); err != nil {
		return nil, fmt.Errorf("can't query reservations: %w", err)
	}

	return rs, nil
}
