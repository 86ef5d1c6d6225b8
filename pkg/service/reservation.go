package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/policy"
)

type Reservation interface {
	// Keep reserves one unit of the vinyl for the caller. confirmTitle must repeat the vinyl's title.
	Keep(ctx context.Context, p model.Principal, vinylID uuid.UUID, confirmTitle string) (model.Reservation, error)
	Transition(ctx context.Context, p model.Principal, reservationID uuid.UUID, status string) (model.Reservation, error)
	ListMine(ctx context.Context, p model.Principal) ([]model.ReservationDetails, error)
	ListAll(ctx context.Context, p model.Principal) ([]model.ReservationDetails, error)
}

// ReservationGeneric represents an implementation of Reservation interface containing core logics
// which can be wrapped in other implementations contained in reservation_*.go.
type ReservationGeneric struct {
	Store database.Store
	// KeepAttempts defaults to Store.KeepAttempts().
	KeepAttempts database.KeepAttemptRepository
	KeepPeriod   time.Duration
	Now          func() time.Time
}

func (rg *ReservationGeneric) Keep(ctx context.Context, p model.Principal, vinylID uuid.UUID, confirmTitle string) (res model.Reservation, err error) {
	if !p.Authenticated() {
		return model.Reservation{}, model.ErrUnauthenticated
	}

	defer func(t0 time.Time) {
		if !shouldRecordKeep(err) {
			return
		}

		ka := model.KeepAttempt{
			UserID:        p.ID,
			VinylID:       vinylID,
			CreatedAt:     t0,
			ReservationID: res.ID,
		}

		if err != nil {
			ka.Error = err.Error()
		}

		if err := rg.keepAttempts().Add(ctx, ka); err != nil {
			slog.Error("can't save keep attempt", slog.Any("error", err))
		}
	}(rg.now())

	err = rg.Store.RunInTx(ctx, func(ctx context.Context, r database.Repositories) error {
		vinyl, err := r.Vinyls().Get(ctx, vinylID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return model.ErrItemNotFound
			}
			return fmt.Errorf("can't get vinyl: %w", err)
		}

		// fast path, the decrement below has the final word
		if vinyl.Stock <= 0 {
			return model.ErrItemUnavailable
		}

		if strings.TrimSpace(confirmTitle) != vinyl.Title {
			return model.ErrConfirmationMismatch
		}

		if _, err := (Ledger{r.Vinyls()}).Decrement(ctx, vinylID); err != nil {
			if errors.Is(err, model.ErrInsufficientStock) {
				return model.ErrItemUnavailable
			}
			return err
		}

		now := rg.now()
		res = model.Reservation{
			ID:         uuid.New(),
			OwnerID:    p.ID,
			VinylID:    vinylID,
			ReservedAt: now,
			ExpiresAt:  now.Add(rg.keepPeriod()),
			Status:     model.StatusActive,
		}

		if err := r.Reservations().Insert(ctx, res); err != nil {
			return fmt.Errorf("can't insert reservation: %w", err)
		}

		return nil
	})
	if err != nil {
		return model.Reservation{}, fmt.Errorf("can't keep vinyl %s: %w", vinylID, err)
	}

	return res, nil
}

// Transition changes reservation status on behalf of an admin. Moving an active reservation to expired
// returns its unit to stock in the same transaction as the status change.
func (rg *ReservationGeneric) Transition(ctx context.Context, p model.Principal, reservationID uuid.UUID, status string) (res model.Reservation, err error) {
	if !p.Authenticated() {
		return model.Reservation{}, model.ErrUnauthenticated
	}

	if !policy.CanTransition(p, model.Reservation{ID: reservationID}, model.Status(status)) {
		return model.Reservation{}, model.ErrForbidden
	}

	target, err := model.ParseStatus(status)
	if err != nil {
		return model.Reservation{}, err
	}

	err = rg.Store.RunInTx(ctx, func(ctx context.Context, r database.Repositories) error {
		current, err := r.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return model.ErrReservationNotFound
			}
			return fmt.Errorf("can't get reservation: %w", err)
		}

		if !current.Status.CanTransitionTo(target) {
			return model.ErrInvalidTransition
		}

		if target == model.StatusExpired {
			if _, err := (Ledger{r.Vinyls()}).Increment(ctx, current.VinylID); err != nil {
				return err
			}
		}

		if err := r.Reservations().UpdateStatus(ctx, reservationID, current.Status, target); err != nil {
			if errors.Is(err, database.ErrConflict) {
				return model.ErrInvalidTransition
			}
			return fmt.Errorf("can't update status: %w", err)
		}

		res = current
		res.Status = target
		return nil
	})
	if err != nil {
		return model.Reservation{}, fmt.Errorf("can't move reservation %s to %s: %w", reservationID, target, err)
	}

	return res, nil
}

func (rg *ReservationGeneric) now() time.Time {
	if rg.Now != nil {
		return rg.Now()
	}
	return time.Now().UTC()
}

func (rg *ReservationGeneric) keepPeriod() time.Duration {
	if rg.KeepPeriod > 0 {
		return rg.KeepPeriod
	}
	return model.DefaultKeepPeriod
}

func (rg *ReservationGeneric) keepAttempts() database.KeepAttemptRepository {
	if rg.KeepAttempts != nil {
		return rg.KeepAttempts
	}
	return rg.Store.KeepAttempts()
}

// shouldRecordKeep keeps the audit log to attempts which reached the stock decision.
func shouldRecordKeep(err error) bool {
	return err == nil || errors.Is(err, model.ErrItemUnavailable)
}
