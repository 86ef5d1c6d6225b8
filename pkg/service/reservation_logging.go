package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type ReservationLogging struct {
	Reservation
}

func (rl *ReservationLogging) Keep(ctx context.Context, p model.Principal, vinylID uuid.UUID, confirmTitle string) (res model.Reservation, err error) {
	defer func(t0 time.Time) {
		log := slog.With(
			slog.String("user_id", p.ID.String()),
			slog.String("vinyl_id", vinylID.String()),
			slog.String("delay", time.Since(t0).String()),
		)

		if err != nil {
			logFailure(log, "failed to keep vinyl", err)
		} else {
			log.Debug("vinyl kept", slog.String("reservation_id", res.ID.String()))
		}
	}(time.Now())

	return rl.Reservation.Keep(ctx, p, vinylID, confirmTitle)
}

func (rl *ReservationLogging) Transition(ctx context.Context, p model.Principal, reservationID uuid.UUID, status string) (res model.Reservation, err error) {
	defer func(t0 time.Time) {
		log := slog.With(
			slog.String("user_id", p.ID.String()),
			slog.String("reservation_id", reservationID.String()),
			slog.String("status", status),
			slog.String("delay", time.Since(t0).String()),
		)

		if err != nil {
			logFailure(log, "failed to transition reservation", err)
		} else {
			log.Info("reservation transitioned")
		}
	}(time.Now())

	return rl.Reservation.Transition(ctx, p, reservationID, status)
}

func (rl *ReservationLogging) ListMine(ctx context.Context, p model.Principal) (ds []model.ReservationDetails, err error) {
	defer func(t0 time.Time) {
		log := slog.With(
			slog.String("user_id", p.ID.String()),
			slog.Int("count", len(ds)),
			slog.String("delay", time.Since(t0).String()),
		)

		if err != nil {
			logFailure(log, "failed to list own reservations", err)
		} else {
			log.Debug("own reservations listed")
		}
	}(time.Now())

	return rl.Reservation.ListMine(ctx, p)
}

func (rl *ReservationLogging) ListAll(ctx context.Context, p model.Principal) (ds []model.ReservationDetails, err error) {
	defer func(t0 time.Time) {
		log := slog.With(
			slog.String("user_id", p.ID.String()),
			slog.Int("count", len(ds)),
			slog.String("delay", time.Since(t0).String()),
		)

		if err != nil {
			logFailure(log, "failed to list all reservations", err)
		} else {
			log.Debug("all reservations listed")
		}
	}(time.Now())

	return rl.Reservation.ListAll(ctx, p)
}

// logFailure logs expected domain outcomes at warn level so that error level is left for internal failures.
func logFailure(log *slog.Logger, msg string, err error) {
	if model.AsError(err).Kind == model.KindInternal {
		log.Error(msg, slog.Any("error", err))
		return
	}

	log.Warn(msg, slog.Any("error", err))
}
