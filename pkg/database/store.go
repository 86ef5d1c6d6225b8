package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type VinylRepository interface {
	Get(ctx context.Context, id uuid.UUID) (model.Vinyl, error)
	Create(ctx context.Context, v model.Vinyl) error
	GetPage(ctx context.Context, onlyAvailable bool, num, size int) ([]model.Vinyl, int, error)
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.VinylSummary, error)
	// Update writes catalog fields of v. Stock is left as is.
	Update(ctx context.Context, v model.Vinyl) error
	// Delete removes the vinyl together with wishlist entries pointing to it.
	Delete(ctx context.Context, id uuid.UUID) error

	// DecrementStock takes one unit of stock in a single conditional write and returns what is left.
	// It fails with model.ErrInsufficientStock when stock is already zero.
	DecrementStock(ctx context.Context, id uuid.UUID) (int, error)
	IncrementStock(ctx context.Context, id uuid.UUID) (int, error)
}

type ReservationRepository interface {
	Insert(ctx context.Context, r model.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Reservation, error)
	// FindByOwner and FindAll return reservations ordered by reserved_at, newest first.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Reservation, error)
	FindAll(ctx context.Context) ([]model.Reservation, error)
	FindOverdue(ctx context.Context, now time.Time) ([]model.Reservation, error)
	// ExistsForVinyl reports whether any reservation of any status references the vinyl.
	ExistsForVinyl(ctx context.Context, vinylID uuid.UUID) (bool, error)
	// UpdateStatus moves reservation to status `to` only if its status is still `from`.
	// ErrConflict is returned when someone changed the status first.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) error
}

type WishlistRepository interface {
	Exists(ctx context.Context, userID, vinylID uuid.UUID) (bool, error)
	Add(ctx context.Context, e model.WishlistEntry) error
	Remove(ctx context.Context, userID, vinylID uuid.UUID) error
	FindByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistEntry, error)
}

// UserRepository reads profiles owned by the identity service.
type UserRepository interface {
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error)
}

type KeepAttemptRepository interface {
	Add(context.Context, ...model.KeepAttempt) error
}

// Repositories is a set of repositories sharing the same connection or transaction.
type Repositories interface {
	Vinyls() VinylRepository
	Reservations() ReservationRepository
	Wishlist() WishlistRepository
	Users() UserRepository
}

type TxFunc func(ctx context.Context, r Repositories) error

// Store is a storage backend. Everything done by fn passed to RunInTx is applied all together or not at all.
type Store interface {
	Repositories
	KeepAttempts() KeepAttemptRepository
	RunInTx(ctx context.Context, fn TxFunc) error
}
