package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

// Expirer moves active reservations past their keep period to expired, returning their units to stock.
type Expirer struct {
	Reservations database.ReservationRepository
	Service      Reservation
}

// ExpireOverdue returns the number of reservations expired. Reservations transitioned concurrently by someone else
// are skipped, other failures don't stop the sweep and are returned joined.
func (e *Expirer) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := e.Reservations.FindOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("can't find overdue reservations: %w", err)
	}

	var (
		expired int
		errs    []error
	)

	for _, r := range overdue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		_, err := e.Service.Transition(ctx, model.SystemPrincipal, r.ID, string(model.StatusExpired))
		switch {
		case errors.Is(err, model.ErrInvalidTransition):
			slog.Debug("reservation already transitioned", slog.String("reservation_id", r.ID.String()))
		case err != nil:
			errs = append(errs, err)
		default:
			expired++
		}
	}

	slog.Info("overdue reservations expired",
		slog.Int("found", len(overdue)),
		slog.Int("expired", expired),
		slog.Int("failed", len(errs)),
	)

	return expired, errors.Join(errs...)
}

