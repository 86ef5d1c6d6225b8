package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/limiter"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

// ReservationLimiting is a wrapper over Reservation service
// which makes sure that user can make no more than Limiter.Limit keeps per hour.
// A slot is taken before the keep and given back if the keep fails.
//
// If failed to check limits, the behavior depends on FailOpen flag. If set, current request is allowed.
// Otherwise, an error will be returned.
type ReservationLimiting struct {
	Reservation

	Limiter  *limiter.Limiter
	FailOpen bool
}

func (rl *ReservationLimiting) Keep(ctx context.Context, p model.Principal, vinylID uuid.UUID, confirmTitle string) (model.Reservation, error) {
	if !p.Authenticated() {
		return model.Reservation{}, model.ErrUnauthenticated
	}

	release, ok, err := rl.Limiter.Acquire(ctx, p.ID)
	if err != nil {
		if !rl.FailOpen {
			return model.Reservation{}, fmt.Errorf("can't check if limit exceeded: %w", err)
		}

		slog.Error("can't check if limit exceeded", slog.Any("error", err))
		return rl.Reservation.Keep(ctx, p, vinylID, confirmTitle)
	}

	if !ok {
		return model.Reservation{}, model.ErrLimitExceeded
	}

	res, err := rl.Reservation.Keep(ctx, p, vinylID, confirmTitle)
	if err != nil {
		// failed keeps don't count
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Error("can't release user's limit", slog.Any("error", err))
		}

		return model.Reservation{}, err
	}

	return res, nil
}
