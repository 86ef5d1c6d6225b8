// Package memory implements database.Store in process memory.
// It is used by tests and by the server when started with -storage=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type wishKey struct {
	userID, vinylID uuid.UUID
}

type state struct {
	vinyls       map[uuid.UUID]model.Vinyl
	reservations map[uuid.UUID]model.Reservation
	wishlist     map[wishKey]model.WishlistEntry
	users        map[uuid.UUID]model.UserSummary
	attempts     []model.KeepAttempt
}

func (s *state) clone() *state {
	c := &state{
		vinyls:       make(map[uuid.UUID]model.Vinyl, len(s.vinyls)),
		reservations: make(map[uuid.UUID]model.Reservation, len(s.reservations)),
		wishlist:     make(map[wishKey]model.WishlistEntry, len(s.wishlist)),
		users:        make(map[uuid.UUID]model.UserSummary, len(s.users)),
		attempts:     append([]model.KeepAttempt(nil), s.attempts...),
	}
	for k, v := range s.vinyls {
		c.vinyls[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.wishlist {
		c.wishlist[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store serializes every call with a single mutex. RunInTx holds it for the whole
// transaction and restores the previous state if fn fails.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		vinyls:       make(map[uuid.UUID]model.Vinyl),
		reservations: make(map[uuid.UUID]model.Reservation),
		wishlist:     make(map[wishKey]model.WishlistEntry),
		users:        make(map[uuid.UUID]model.UserSummary),
	}}
}

func (s *Store) Vinyls() database.VinylRepository             { return vinyls{s.locked} }
func (s *Store) Reservations() database.ReservationRepository { return reservations{s.locked} }
func (s *Store) Wishlist() database.WishlistRepository        { return wishlist{s.locked} }
func (s *Store) Users() database.UserRepository               { return users{s.locked} }
func (s *Store) KeepAttempts() database.KeepAttemptRepository { return attempts{s.locked} }

func (s *Store) RunInTx(ctx context.Context, fn database.TxFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	inTx := func(f func(*state) error) error { return f(s.st) }
	return fn(ctx, txRepositories{inTx})
}

// locked runs f against current state holding the store's mutex.
func (s *Store) locked(f func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.st)
}

// SeedVinyl puts v into the store as is.
func (s *Store) SeedVinyl(v model.Vinyl) {
	_ = s.locked(func(st *state) error {
		st.vinyls[v.ID] = v
		return nil
	})
}

// SeedUser registers a profile as if it was created by the identity service.
func (s *Store) SeedUser(u model.UserSummary) {
	_ = s.locked(func(st *state) error {
		st.users[u.ID] = u
		return nil
	})
}

// Stock returns current stock of the vinyl or -1 when it doesn't exist.
func (s *Store) Stock(id uuid.UUID) int {
	stock := -1
	_ = s.locked(func(st *state) error {
		if v, ok := st.vinyls[id]; ok {
			stock = v.Stock
		}
		return nil
	})
	return stock
}

// Attempts returns a copy of recorded keep attempts.
func (s *Store) Attempts() []model.KeepAttempt {
	var res []model.KeepAttempt
	_ = s.locked(func(st *state) error {
		res = append(res, st.attempts...)
		return nil
	})
	return res
}

type access func(func(*state) error) error

type txRepositories struct {
	do access
}

func (r txRepositories) Vinyls() database.VinylRepository             { return vinyls{r.do} }
func (r txRepositories) Reservations() database.ReservationRepository { return reservations{r.do} }
func (r txRepositories) Wishlist() database.WishlistRepository        { return wishlist{r.do} }
func (r txRepositories) Users() database.UserRepository               { return users{r.do} }

type vinyls struct {
	do access
}

func (v vinyls) Get(_ context.Context, id uuid.UUID) (model.Vinyl, error) {
	var res model.Vinyl
	err := v.do(func(st *state) error {
		vinyl, ok := st.vinyls[id]
		if !ok {
			return fmt.Errorf("vinyl %s: %w", id, database.ErrNotFound)
		}
		res = vinyl
		return nil
	})
	return res, err
}

func (v vinyls) Create(_ context.Context, vinyl model.Vinyl) error {
	return v.do(func(st *state) error {
		if _, ok := st.vinyls[vinyl.ID]; ok {
			return fmt.Errorf("vinyl %s: %w", vinyl.ID, database.ErrConflict)
		}
		st.vinyls[vinyl.ID] = vinyl
		return nil
	})
}

func (v vinyls) GetPage(_ context.Context, onlyAvailable bool, num, size int) ([]model.Vinyl, int, error) {
	var (
		page  []model.Vinyl
		total int
	)
	err := v.do(func(st *state) error {
		all := make([]model.Vinyl, 0, len(st.vinyls))
		for _, vinyl := range st.vinyls {
			if onlyAvailable && vinyl.Stock <= 0 {
				continue
			}
			all = append(all, vinyl)
		}

		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].ID.String() < all[j].ID.String()
		})

		total = len(all)
		page = paginate(all, num, size)
		return nil
	})
	return page, total, err
}

func (v vinyls) Summaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.VinylSummary, error) {
	res := make(map[uuid.UUID]model.VinylSummary, len(ids))
	err := v.do(func(st *state) error {
		for _, id := range ids {
			if vinyl, ok := st.vinyls[id]; ok {
				res[id] = vinyl.Summary()
			}
		}
		return nil
	})
	return res, err
}

func (v vinyls) Update(_ context.Context, vinyl model.Vinyl) error {
	return v.do(func(st *state) error {
		current, ok := st.vinyls[vinyl.ID]
		if !ok {
			return fmt.Errorf("vinyl %s: %w", vinyl.ID, database.ErrNotFound)
		}
		vinyl.Stock = current.Stock
		vinyl.CreatedAt = current.CreatedAt
		st.vinyls[vinyl.ID] = vinyl
		return nil
	})
}

func (v vinyls) Delete(_ context.Context, id uuid.UUID) error {
	return v.do(func(st *state) error {
		if _, ok := st.vinyls[id]; !ok {
			return fmt.Errorf("vinyl %s: %w", id, database.ErrNotFound)
		}
		for _, res := range st.reservations {
			if res.VinylID == id {
				return fmt.Errorf("vinyl %s is reserved: %w", id, database.ErrConflict)
			}
		}
		for key := range st.wishlist {
			if key.vinylID == id {
				delete(st.wishlist, key)
			}
		}
		delete(st.vinyls, id)
		return nil
	})
}

func (v vinyls) DecrementStock(_ context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := v.do(func(st *state) error {
		vinyl, ok := st.vinyls[id]
		if !ok {
			return fmt.Errorf("vinyl %s: %w", id, database.ErrNotFound)
		}
		if vinyl.Stock <= 0 {
			return model.ErrInsufficientStock
		}
		vinyl.Stock--
		st.vinyls[id] = vinyl
		stock = vinyl.Stock
		return nil
	})
	return stock, err
}

func (v vinyls) IncrementStock(_ context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := v.do(func(st *state) error {
		vinyl, ok := st.vinyls[id]
		if !ok {
			return fmt.Errorf("vinyl %s: %w", id, database.ErrNotFound)
		}
		vinyl.Stock++
		st.vinyls[id] = vinyl
		stock = vinyl.Stock
		return nil
	})
	return stock, err
}

type reservations struct {
	do access
}

func (r reservations) Insert(_ context.Context, res model.Reservation) error {
	return r.do(func(st *state) error {
		if _, ok := st.reservations[res.ID]; ok {
			return fmt.Errorf("reservation %s: %w", res.ID, database.ErrConflict)
		}
		st.reservations[res.ID] = res
		return nil
	})
}

func (r reservations) FindByID(_ context.Context, id uuid.UUID) (model.Reservation, error) {
	var res model.Reservation
	err := r.do(func(st *state) error {
		found, ok := st.reservations[id]
		if !ok {
			return fmt.Errorf("reservation %s: %w", id, database.ErrNotFound)
		}
		res = found
		return nil
	})
	return res, err
}

func (r reservations) FindByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool { return res.OwnerID == ownerID }, newestFirst)
}

func (r reservations) FindAll(context.Context) ([]model.Reservation, error) {
	return r.filter(func(model.Reservation) bool { return true }, newestFirst)
}

func (r reservations) FindOverdue(_ context.Context, now time.Time) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool { return res.Overdue(now) }, func(a, b model.Reservation) bool {
		return a.ExpiresAt.Before(b.ExpiresAt)
	})
}

func (r reservations) ExistsForVinyl(_ context.Context, vinylID uuid.UUID) (bool, error) {
	var exists bool
	err := r.do(func(st *state) error {
		for _, res := range st.reservations {
			if res.VinylID == vinylID {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r reservations) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.Status) error {
	return r.do(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return fmt.Errorf("reservation %s: %w", id, database.ErrNotFound)
		}
		if res.Status != from {
			return fmt.Errorf("reservation %s is not %s anymore: %w", id, from, database.ErrConflict)
		}
		res.Status = to
		st.reservations[id] = res
		return nil
	})
}

func (r reservations) filter(keep func(model.Reservation) bool, less func(a, b model.Reservation) bool) ([]model.Reservation, error) {
	var res []model.Reservation
	err := r.do(func(st *state) error {
		for _, found := range st.reservations {
			if keep(found) {
				res = append(res, found)
			}
		}
		return nil
	})
	sort.Slice(res, func(i, j int) bool { return less(res[i], res[j]) })
	return res, err
}

func newestFirst(a, b model.Reservation) bool {
	if !a.ReservedAt.Equal(b.ReservedAt) {
		return a.ReservedAt.After(b.ReservedAt)
	}
	return a.ID.String() < b.ID.String()
}

type wishlist struct {
	do access
}

func (w wishlist) Exists(_ context.Context, userID, vinylID uuid.UUID) (bool, error) {
	var exists bool
	err := w.do(func(st *state) error {
		_, exists = st.wishlist[wishKey{userID, vinylID}]
		return nil
	})
	return exists, err
}

func (w wishlist) Add(_ context.Context, e model.WishlistEntry) error {
	return w.do(func(st *state) error {
		key := wishKey{e.UserID, e.VinylID}
		if _, ok := st.wishlist[key]; ok {
			return database.ErrConflict
		}
		e.Vinyl = nil
		st.wishlist[key] = e
		return nil
	})
}

func (w wishlist) Remove(_ context.Context, userID, vinylID uuid.UUID) error {
	return w.do(func(st *state) error {
		key := wishKey{userID, vinylID}
		if _, ok := st.wishlist[key]; !ok {
			return database.ErrNotFound
		}
		delete(st.wishlist, key)
		return nil
	})
}

func (w wishlist) FindByUser(_ context.Context, userID uuid.UUID) ([]model.WishlistEntry, error) {
	var res []model.WishlistEntry
	err := w.do(func(st *state) error {
		for key, e := range st.wishlist {
			if key.userID == userID {
				res = append(res, e)
			}
		}
		return nil
	})
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, err
}

type users struct {
	do access
}

func (u users) Summaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	res := make(map[uuid.UUID]model.UserSummary, len(ids))
	err := u.do(func(st *state) error {
		for _, id := range ids {
			if user, ok := st.users[id]; ok {
				res[id] = user
			}
		}
		return nil
	})
	return res, err
}

type attempts struct {
	do access
}

func (a attempts) Add(_ context.Context, kas ...model.KeepAttempt) error {
	return a.do(func(st *state) error {
		st.attempts = append(st.attempts, kas...)
		return nil
	})
}

func paginate[T any](all []T, num, size int) []T {
	if num < 1 || size < 1 {
		return []T{}
	}

	start := (num - 1) * size
	if start >= len(all) {
		return []T{}
	}

	end := min(start+size, len(all))
	return all[start:end]
}
