package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

// Ledger is the only component allowed to change vinyl stock.
// Bind it to repositories of a transaction to make stock changes part of that transaction.
type Ledger struct {
	Vinyls database.VinylRepository
}

// Decrement takes one unit of stock. It fails with model.ErrInsufficientStock when nothing is left.
func (l Ledger) Decrement(ctx context.Context, vinylID uuid.UUID) (int, error) {
	stock, err := l.Vinyls.DecrementStock(ctx, vinylID)
	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		return 0, err
	case errors.Is(err, database.ErrNotFound):
		return 0, model.ErrItemNotFound
	case err != nil:
		return 0, fmt.Errorf("can't decrement stock: %w", err)
	}

	slog.Debug("stock decremented", slog.String("vinyl_id", vinylID.String()), slog.Int("stock", stock))
	return stock, nil
}

// Increment returns one unit of stock. Callers make sure it happens once per released reservation.
func (l Ledger) Increment(ctx context.Context, vinylID uuid.UUID) (int, error) {
	stock, err := l.Vinyls.IncrementStock(ctx, vinylID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, model.ErrItemNotFound
	case err != nil:
		return 0, fmt.Errorf("can't increment stock: %w", err)
	}

	slog.Debug("stock incremented", slog.String("vinyl_id", vinylID.String()), slog.Int("stock", stock))
	return stock, nil
}
